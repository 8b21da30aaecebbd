package contract

import (
	"fmt"
	"math"
	"strconv"

	"farmlink/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// The balance ledger backs the buy operation. Balances are held in the
// smallest currency unit and only ever move inside a single write set, so a
// transition and its payment settle together or not at all.

func (s *FarmLinkSmartContract) createAccountCompositeKey(ctx contractapi.TransactionContextInterface, identity string) (string, error) {
	return ctx.GetStub().CreateCompositeKey(accountObjectType, []string{identity})
}

// balanceOf returns an identity's balance, 0 for unfunded accounts.
func (s *FarmLinkSmartContract) balanceOf(ctx contractapi.TransactionContextInterface, identity string) (uint64, error) {
	accountKey, err := s.createAccountCompositeKey(ctx, identity)
	if err != nil {
		return 0, fmt.Errorf("failed to create account key for '%s': %w", identity, err)
	}
	balanceBytes, err := ctx.GetStub().GetState(accountKey)
	if err != nil {
		return 0, fmt.Errorf("ledger error reading balance of '%s': %w", identity, err)
	}
	if balanceBytes == nil {
		return 0, nil
	}
	balance, err := strconv.ParseUint(string(balanceBytes), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("account '%s' holds unparseable balance '%s': %w", identity, string(balanceBytes), err)
	}
	return balance, nil
}

func (s *FarmLinkSmartContract) setBalance(ctx contractapi.TransactionContextInterface, identity string, balance uint64) error {
	accountKey, err := s.createAccountCompositeKey(ctx, identity)
	if err != nil {
		return fmt.Errorf("failed to create account key for '%s': %w", identity, err)
	}
	if err := ctx.GetStub().PutState(accountKey, []byte(strconv.FormatUint(balance, 10))); err != nil {
		return fmt.Errorf("failed to save balance of '%s': %w", identity, err)
	}
	return nil
}

// settlePurchase moves funds for a completed buy: the payer is debited the
// full payment, refunded the excess over price, and the seller is credited
// the price. All three legs are computed up front and written once per
// account, so the payer's net change is exactly -price.
func (s *FarmLinkSmartContract) settlePurchase(ctx contractapi.TransactionContextInterface, payer, seller string, price, payment uint64) error {
	payerBalance, err := s.balanceOf(ctx, payer)
	if err != nil {
		return err
	}
	if payerBalance < payment {
		return fmt.Errorf("%w: identity '%s' holds %d, payment requires %d", ErrInsufficientFunds, payer, payerBalance, payment)
	}
	sellerBalance, err := s.balanceOf(ctx, seller)
	if err != nil {
		return err
	}
	if sellerBalance > math.MaxUint64-price {
		return fmt.Errorf("%w: crediting %d to '%s' would overflow", ErrInvalidInput, price, seller)
	}

	refund := payment - price
	if err := s.setBalance(ctx, payer, payerBalance-payment+refund); err != nil {
		return err
	}
	if err := s.setBalance(ctx, seller, sellerBalance+price); err != nil {
		return err
	}
	logger.Infof("Settled purchase: payer '%s' -%d (refund %d), seller '%s' +%d", payer, price, refund, seller, price)
	return nil
}

// DepositFunds credits the caller's account. Funding is a stand-in for the
// external payment rail; only registered participants may hold a balance.
func (s *FarmLinkSmartContract) DepositFunds(ctx contractapi.TransactionContextInterface, amount string) error {
	actor, err := s.getCurrentActorInfo(ctx)
	if err != nil {
		return fmt.Errorf("DepositFunds: failed to get actor info: %w", err)
	}
	if actor.role == model.RoleUnassigned {
		return fmt.Errorf("DepositFunds: %w: identity '%s' has no role assigned", ErrUnauthorized, actor.identity)
	}

	value, err := parseAmount(amount, "amount")
	if err != nil {
		return fmt.Errorf("DepositFunds: %w", err)
	}
	if value == 0 {
		return fmt.Errorf("DepositFunds: %w: amount must be positive", ErrInvalidInput)
	}

	balance, err := s.balanceOf(ctx, actor.identity)
	if err != nil {
		return fmt.Errorf("DepositFunds: %w", err)
	}
	if balance > math.MaxUint64-value {
		return fmt.Errorf("DepositFunds: %w: deposit of %d would overflow balance %d", ErrInvalidInput, value, balance)
	}
	if err := s.setBalance(ctx, actor.identity, balance+value); err != nil {
		return fmt.Errorf("DepositFunds: %w", err)
	}
	logger.Infof("Identity '%s' deposited %d", actor.identity, value)
	return nil
}

// GetBalance returns the caller's balance as a decimal string.
func (s *FarmLinkSmartContract) GetBalance(ctx contractapi.TransactionContextInterface) (string, error) {
	reg := NewRoleRegistry(ctx)
	caller, err := reg.GetCurrentIdentity()
	if err != nil {
		return "", fmt.Errorf("GetBalance: failed to get caller identity: %w", err)
	}
	balance, err := s.balanceOf(ctx, caller)
	if err != nil {
		return "", fmt.Errorf("GetBalance: %w", err)
	}
	return strconv.FormatUint(balance, 10), nil
}

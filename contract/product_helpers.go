package contract

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"farmlink/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// --- Core Helper Methods (used across multiple operations) ---

// getCurrentTxTimestamp retrieves the current transaction timestamp from the stub.
func (s *FarmLinkSmartContract) getCurrentTxTimestamp(ctx contractapi.TransactionContextInterface) (time.Time, error) {
	ts, err := ctx.GetStub().GetTxTimestamp()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get transaction timestamp: %w", err)
	}
	return ts.AsTime(), nil
}

// getCurrentActorInfo resolves the transaction invoker's identity and role.
func (s *FarmLinkSmartContract) getCurrentActorInfo(ctx contractapi.TransactionContextInterface) (*actorInfo, error) {
	reg := NewRoleRegistry(ctx)
	identity, err := reg.GetCurrentIdentity()
	if err != nil {
		return nil, fmt.Errorf("failed to get current actor's identity: %w", err)
	}
	role, err := reg.RoleOf(identity)
	if err != nil {
		return nil, fmt.Errorf("failed to get current actor's role: %w", err)
	}
	mspID := ""
	if clientIdentity := ctx.GetClientIdentity(); clientIdentity != nil {
		if id, mspErr := clientIdentity.GetMSPID(); mspErr == nil {
			mspID = id
		}
	}
	return &actorInfo{identity: identity, role: role, mspID: mspID}, nil
}

// createProductCompositeKey creates a composite key for a product. The id is
// zero-padded so that iterator order over the Product namespace is id order.
func (s *FarmLinkSmartContract) createProductCompositeKey(ctx contractapi.TransactionContextInterface, productID uint64) (string, error) {
	return ctx.GetStub().CreateCompositeKey(productObjectType, []string{padSequence(productID)})
}

// padSequence renders a counter value as a fixed-width decimal string so
// that lexicographic key order matches numeric order.
func padSequence(n uint64) string {
	return fmt.Sprintf("%012d", n)
}

// --- Validation Helper Functions ---

func (s *FarmLinkSmartContract) validateRequiredString(input, field string, max int) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("%w: %s cannot be empty", ErrInvalidInput, field)
	}
	if len(input) > max {
		return fmt.Errorf("%w: %s exceeds max length %d", ErrInvalidInput, field, max)
	}
	return nil
}

// parseProductID parses a 1-based product id argument.
func parseProductID(idStr string) (uint64, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(idStr), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: product id '%s' is not a positive integer", ErrInvalidInput, idStr)
	}
	return id, nil
}

// parseAmount parses a currency amount given as a decimal string in the
// ledger's smallest unit.
func parseAmount(amountStr, field string) (uint64, error) {
	amount, err := strconv.ParseUint(strings.TrimSpace(amountStr), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s '%s' is not a non-negative integer", ErrInvalidInput, field, amountStr)
	}
	return amount, nil
}

// --- Transition Table ---

// transitionRule describes one edge of the lifecycle state machine: the
// single state an operation may start from, the state it moves to, the role
// allowed to invoke it, and whether the caller must be the current holder.
type transitionRule struct {
	from        model.ProductState
	to          model.ProductState
	role        model.Role
	holderCheck bool
}

// transitionTable is the complete forward-only transition graph. Each state
// is reachable only from its immediate predecessor; the table is consulted
// centrally rather than re-encoded per operation.
var transitionTable = map[string]transitionRule{
	"process": {from: model.StateHarvested, to: model.StateProcessed, role: model.RoleFarmer, holderCheck: true},
	"pack":    {from: model.StateProcessed, to: model.StatePacked, role: model.RoleFarmer, holderCheck: true},
	"sell":    {from: model.StatePacked, to: model.StateForSale, role: model.RoleFarmer, holderCheck: true},
	"buy":     {from: model.StateForSale, to: model.StateSold, role: model.RoleDistributor, holderCheck: false},
	"ship":    {from: model.StateSold, to: model.StateShipped, role: model.RoleDistributor, holderCheck: true},
	"receive": {from: model.StateShipped, to: model.StateReceived, role: model.RoleRetailer, holderCheck: false},
}

// loadProductForTransition authorizes the caller and fetches the product for
// the named operation: role gate first, then existence, then state
// precondition, then holder check. Any failure leaves the ledger untouched.
func (s *FarmLinkSmartContract) loadProductForTransition(ctx contractapi.TransactionContextInterface, op string, productID uint64) (*model.Product, string, transitionRule, error) {
	rule, ok := transitionTable[op]
	if !ok {
		return nil, "", transitionRule{}, fmt.Errorf("unknown operation '%s'", op)
	}

	caller, err := NewRoleRegistry(ctx).RequireRole(rule.role)
	if err != nil {
		return nil, "", rule, err
	}

	product, err := s.getProductByID(ctx, productID)
	if err != nil {
		return nil, "", rule, err
	}

	if product.State != rule.from {
		return nil, "", rule, fmt.Errorf("%w: product %d is '%s', operation '%s' requires '%s'",
			ErrInvalidTransition, productID, product.State, op, rule.from)
	}
	if rule.holderCheck && product.CurrentHolder != caller {
		return nil, "", rule, fmt.Errorf("%w: identity '%s' is not the current holder of product %d", ErrUnauthorized, caller, productID)
	}
	return product, caller, rule, nil
}

// commitTransition advances the product to the rule's target state, persists
// it, and appends the transition record in the same write set.
func (s *FarmLinkSmartContract) commitTransition(ctx contractapi.TransactionContextInterface, product *model.Product, rule transitionRule, actor string) error {
	now, err := s.getCurrentTxTimestamp(ctx)
	if err != nil {
		return err
	}
	fromState := product.State
	product.State = rule.to
	product.LastUpdatedAt = now

	if err := s.putProduct(ctx, product); err != nil {
		return err
	}
	return s.appendTransition(ctx, product.ID, fromState, rule.to, actor, now)
}

// putProduct marshals and writes a product record.
func (s *FarmLinkSmartContract) putProduct(ctx contractapi.TransactionContextInterface, product *model.Product) error {
	productKey, err := s.createProductCompositeKey(ctx, product.ID)
	if err != nil {
		return fmt.Errorf("failed to create composite key for product %d: %w", product.ID, err)
	}
	productBytes, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("failed to marshal product %d: %w", product.ID, err)
	}
	if err := ctx.GetStub().PutState(productKey, productBytes); err != nil {
		return fmt.Errorf("failed to save product %d to ledger: %w", product.ID, err)
	}
	return nil
}

// emitProductEvent sends a chaincode event. Event failures are logged, not
// returned; the transition itself has already been validated and written.
func (s *FarmLinkSmartContract) emitProductEvent(ctx contractapi.TransactionContextInterface, eventName string, product *model.Product, actor string, additionalPayload map[string]interface{}) {
	if product == nil {
		logger.Errorf("emitProductEvent: cannot emit event '%s', product is nil", eventName)
		return
	}
	payload := map[string]interface{}{
		"productId":            product.ID,
		"name":                 product.Name,
		"state":                product.State.String(),
		"currentHolder":        product.CurrentHolder,
		"actor":                actor,
		"transactionTimestamp": product.LastUpdatedAt.Format(time.RFC3339),
	}
	for k, v := range additionalPayload {
		payload[k] = v
	}
	eventBytes, err := json.Marshal(payload)
	if err != nil {
		logger.Warningf("emitProductEvent: failed to marshal event payload for '%s' on product %d: %v", eventName, product.ID, err)
		return
	}
	if errSet := ctx.GetStub().SetEvent(eventName, eventBytes); errSet != nil {
		logger.Warningf("emitProductEvent: failed to set event '%s' for product %d: %v", eventName, product.ID, errSet)
	}
}

package contract

import (
	"fmt"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// --- Lifecycle: Distributor Operations ---

// BuyProduct purchases a product listed for sale. The payment, a decimal
// string in the smallest currency unit, must cover the listed price and must
// be backed by the caller's funded balance. The payer is debited exactly the
// price (any excess is refunded in the same write set), the farmer is
// credited, and custody moves to the caller. The transition and the funds
// movement commit together or not at all.
func (s *FarmLinkSmartContract) BuyProduct(ctx contractapi.TransactionContextInterface, productID string, payment string) error {
	id, err := parseProductID(productID)
	if err != nil {
		return fmt.Errorf("BuyProduct: %w", err)
	}
	paymentValue, err := parseAmount(payment, "payment")
	if err != nil {
		return fmt.Errorf("BuyProduct: %w", err)
	}

	product, caller, rule, err := s.loadProductForTransition(ctx, "buy", id)
	if err != nil {
		return fmt.Errorf("BuyProduct: %w", err)
	}
	if paymentValue < product.Price {
		return fmt.Errorf("BuyProduct: %w: payment %d is below price %d for product %d",
			ErrInsufficientPayment, paymentValue, product.Price, id)
	}

	if err := s.settlePurchase(ctx, caller, product.FarmerID, product.Price, paymentValue); err != nil {
		return fmt.Errorf("BuyProduct: %w", err)
	}

	product.CurrentHolder = caller
	if err := s.commitTransition(ctx, product, rule, caller); err != nil {
		return fmt.Errorf("BuyProduct: %w", err)
	}

	s.emitProductEvent(ctx, "ProductSold", product, caller, map[string]interface{}{
		"price":  product.Price,
		"refund": paymentValue - product.Price,
	})
	logger.Infof("Product %d bought by distributor '%s' for %d (refund %d)", id, caller, product.Price, paymentValue-product.Price)
	return nil
}

// ShipProduct ships a sold product. Only the distributor holding the product
// may ship it.
func (s *FarmLinkSmartContract) ShipProduct(ctx contractapi.TransactionContextInterface, productID string) error {
	id, err := parseProductID(productID)
	if err != nil {
		return fmt.Errorf("ShipProduct: %w", err)
	}

	product, caller, rule, err := s.loadProductForTransition(ctx, "ship", id)
	if err != nil {
		return fmt.Errorf("ShipProduct: %w", err)
	}
	if err := s.commitTransition(ctx, product, rule, caller); err != nil {
		return fmt.Errorf("ShipProduct: %w", err)
	}

	s.emitProductEvent(ctx, "ProductShipped", product, caller, nil)
	logger.Infof("Product %d shipped by '%s'", id, caller)
	return nil
}

package contract

import (
	"fmt"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// --- Lifecycle: Retailer Operations ---

// ReceiveProduct records final receipt of a shipped product. Custody moves
// to the receiving retailer and the lifecycle ends; Received has no
// successor state.
func (s *FarmLinkSmartContract) ReceiveProduct(ctx contractapi.TransactionContextInterface, productID string) error {
	id, err := parseProductID(productID)
	if err != nil {
		return fmt.Errorf("ReceiveProduct: %w", err)
	}

	product, caller, rule, err := s.loadProductForTransition(ctx, "receive", id)
	if err != nil {
		return fmt.Errorf("ReceiveProduct: %w", err)
	}
	product.CurrentHolder = caller
	if err := s.commitTransition(ctx, product, rule, caller); err != nil {
		return fmt.Errorf("ReceiveProduct: %w", err)
	}

	s.emitProductEvent(ctx, "ProductReceived", product, caller, nil)
	logger.Infof("Product %d received by retailer '%s'", id, caller)
	return nil
}

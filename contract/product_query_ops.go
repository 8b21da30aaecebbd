package contract

import (
	"encoding/json"
	"fmt"
	"strings"

	"farmlink/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// --- Query Functions ---
// Read-only projections over the product ledger and the event log. Nothing
// here mutates state.

// getProductByID is an internal helper to retrieve and unmarshal a product.
func (s *FarmLinkSmartContract) getProductByID(ctx contractapi.TransactionContextInterface, productID uint64) (*model.Product, error) {
	productKey, err := s.createProductCompositeKey(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to create key for product %d: %w", productID, err)
	}
	productBytes, err := ctx.GetStub().GetState(productKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read product %d from ledger: %w", productID, err)
	}
	if productBytes == nil {
		return nil, fmt.Errorf("%w: product %d does not exist", ErrNotFound, productID)
	}
	var product model.Product
	if err := json.Unmarshal(productBytes, &product); err != nil {
		return nil, fmt.Errorf("failed to unmarshal product %d: %w", productID, err)
	}
	return &product, nil
}

// ProductCount returns the number of products ever created. Ids are assigned
// sequentially from 1, so every id in [1, count] is valid.
func (s *FarmLinkSmartContract) ProductCount(ctx contractapi.TransactionContextInterface) (uint64, error) {
	logger.Debug("Chaincode Call: ProductCount")
	count, err := s.readCounter(ctx, productCounterName)
	if err != nil {
		return 0, fmt.Errorf("ProductCount: %w", err)
	}
	return count, nil
}

// FetchProduct returns the full current snapshot of a product.
func (s *FarmLinkSmartContract) FetchProduct(ctx contractapi.TransactionContextInterface, productID string) (*model.Product, error) {
	logger.Debugf("Chaincode Call: FetchProduct '%s'", productID)
	id, err := parseProductID(productID)
	if err != nil {
		return nil, fmt.Errorf("FetchProduct: %w", err)
	}
	product, err := s.getProductByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("FetchProduct: %w", err)
	}
	return product, nil
}

// GetProductHistory returns the provenance trace of a product: every
// transition record for the id, in global sequence order. The last record's
// toState always equals the product's current state.
func (s *FarmLinkSmartContract) GetProductHistory(ctx contractapi.TransactionContextInterface, productID string) ([]model.TransitionRecord, error) {
	logger.Debugf("Chaincode Call: GetProductHistory '%s'", productID)
	id, err := parseProductID(productID)
	if err != nil {
		return nil, fmt.Errorf("GetProductHistory: %w", err)
	}
	// Existence check first so unknown ids fail NotFound rather than
	// returning an empty trace.
	if _, err := s.getProductByID(ctx, id); err != nil {
		return nil, fmt.Errorf("GetProductHistory: %w", err)
	}
	records, err := s.readProductHistory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("GetProductHistory: %w", err)
	}
	return records, nil
}

// TraceProduct returns a product snapshot together with its full provenance
// trace, the single call behind the public track-product view.
func (s *FarmLinkSmartContract) TraceProduct(ctx contractapi.TransactionContextInterface, productID string) (*model.ProductTrace, error) {
	logger.Debugf("Chaincode Call: TraceProduct '%s'", productID)
	id, err := parseProductID(productID)
	if err != nil {
		return nil, fmt.Errorf("TraceProduct: %w", err)
	}
	product, err := s.getProductByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("TraceProduct: %w", err)
	}
	records, err := s.readProductHistory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("TraceProduct: %w", err)
	}
	return &model.ProductTrace{Product: product, History: records}, nil
}

// GetProductsByHolder returns the ids of all products whose current holder
// or farmer of record matches the given identity, in ascending id order.
func (s *FarmLinkSmartContract) GetProductsByHolder(ctx contractapi.TransactionContextInterface, identity string) ([]uint64, error) {
	logger.Debugf("Chaincode Call: GetProductsByHolder '%s'", identity)
	trimmed := strings.TrimSpace(identity)
	if trimmed == "" {
		return nil, fmt.Errorf("GetProductsByHolder: %w: identity cannot be empty", ErrInvalidInput)
	}

	ids := []uint64{}
	err := s.forEachProduct(ctx, func(product *model.Product) {
		if product.CurrentHolder == trimmed || product.FarmerID == trimmed {
			ids = append(ids, product.ID)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("GetProductsByHolder: %w", err)
	}
	return ids, nil
}

// GetMyProducts returns full snapshots of every product the caller holds or
// farmed, used to populate the role dashboards.
func (s *FarmLinkSmartContract) GetMyProducts(ctx contractapi.TransactionContextInterface) ([]*model.Product, error) {
	caller, err := NewRoleRegistry(ctx).GetCurrentIdentity()
	if err != nil {
		return nil, fmt.Errorf("GetMyProducts: failed to get caller identity: %w", err)
	}
	logger.Debugf("Chaincode Call: GetMyProducts for '%s'", caller)

	products := []*model.Product{}
	err = s.forEachProduct(ctx, func(product *model.Product) {
		if product.CurrentHolder == caller || product.FarmerID == caller {
			products = append(products, product)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("GetMyProducts: %w", err)
	}
	return products, nil
}

// forEachProduct iterates every product record in id order. Product keys are
// zero-padded, so the partial-composite-key iterator already yields them
// ascending.
func (s *FarmLinkSmartContract) forEachProduct(ctx contractapi.TransactionContextInterface, visit func(*model.Product)) error {
	resultsIterator, err := ctx.GetStub().GetStateByPartialCompositeKey(productObjectType, []string{})
	if err != nil {
		return fmt.Errorf("failed to get products iterator: %w", err)
	}
	defer resultsIterator.Close()

	for resultsIterator.HasNext() {
		queryResponse, iterErr := resultsIterator.Next()
		if iterErr != nil {
			logger.Warningf("forEachProduct: failed to get next product from iterator: %v. Skipping.", iterErr)
			continue
		}
		var product model.Product
		if err := json.Unmarshal(queryResponse.Value, &product); err != nil {
			logger.Warningf("forEachProduct: failed to unmarshal product at key '%s': %v. Skipping.", queryResponse.Key, err)
			continue
		}
		visit(&product)
	}
	return nil
}

package contract

import (
	"fmt"

	"farmlink/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// --- Lifecycle: Farmer Operations ---

// HarvestProduct registers a new product. The caller becomes both the
// product's farmer of record and its first holder, and the product receives
// the next sequential id. Provenance metadata is immutable from here on.
func (s *FarmLinkSmartContract) HarvestProduct(ctx contractapi.TransactionContextInterface,
	name string, farmName string, farmDescription string, latitude string, longitude string) (uint64, error) {

	caller, err := NewRoleRegistry(ctx).RequireRole(model.RoleFarmer)
	if err != nil {
		return 0, err
	}

	if err := s.validateRequiredString(name, "name", maxStringInputLength); err != nil {
		return 0, err
	}
	if err := s.validateRequiredString(farmName, "farmName", maxStringInputLength); err != nil {
		return 0, err
	}
	if err := s.validateRequiredString(farmDescription, "farmDescription", maxDescriptionLength); err != nil {
		return 0, err
	}
	if err := s.validateRequiredString(latitude, "latitude", maxStringInputLength); err != nil {
		return 0, err
	}
	if err := s.validateRequiredString(longitude, "longitude", maxStringInputLength); err != nil {
		return 0, err
	}

	now, err := s.getCurrentTxTimestamp(ctx)
	if err != nil {
		return 0, fmt.Errorf("HarvestProduct: %w", err)
	}

	productID, err := s.nextCounterValue(ctx, productCounterName)
	if err != nil {
		return 0, fmt.Errorf("HarvestProduct: %w", err)
	}

	product := model.Product{
		ObjectType:      productObjectType,
		ID:              productID,
		Name:            name,
		FarmName:        farmName,
		FarmDescription: farmDescription,
		Latitude:        latitude,
		Longitude:       longitude,
		FarmerID:        caller,
		CurrentHolder:   caller,
		State:           model.StateHarvested,
		CreatedAt:       now,
		LastUpdatedAt:   now,
	}
	if err := s.putProduct(ctx, &product); err != nil {
		return 0, fmt.Errorf("HarvestProduct: %w", err)
	}

	s.emitProductEvent(ctx, "ProductHarvested", &product, caller, map[string]interface{}{
		"farmName": farmName,
	})
	logger.Infof("Product %d ('%s') harvested by farmer '%s'", productID, name, caller)
	return productID, nil
}

// ProcessProduct advances a harvested product to Processed. Only the farmer
// currently holding the product may process it.
func (s *FarmLinkSmartContract) ProcessProduct(ctx contractapi.TransactionContextInterface, productID string) error {
	id, err := parseProductID(productID)
	if err != nil {
		return fmt.Errorf("ProcessProduct: %w", err)
	}

	product, caller, rule, err := s.loadProductForTransition(ctx, "process", id)
	if err != nil {
		return fmt.Errorf("ProcessProduct: %w", err)
	}
	if err := s.commitTransition(ctx, product, rule, caller); err != nil {
		return fmt.Errorf("ProcessProduct: %w", err)
	}

	s.emitProductEvent(ctx, "ProductProcessed", product, caller, nil)
	logger.Infof("Product %d processed by '%s'", id, caller)
	return nil
}

// PackProduct advances a processed product to Packed.
func (s *FarmLinkSmartContract) PackProduct(ctx contractapi.TransactionContextInterface, productID string) error {
	id, err := parseProductID(productID)
	if err != nil {
		return fmt.Errorf("PackProduct: %w", err)
	}

	product, caller, rule, err := s.loadProductForTransition(ctx, "pack", id)
	if err != nil {
		return fmt.Errorf("PackProduct: %w", err)
	}
	if err := s.commitTransition(ctx, product, rule, caller); err != nil {
		return fmt.Errorf("PackProduct: %w", err)
	}

	s.emitProductEvent(ctx, "ProductPacked", product, caller, nil)
	logger.Infof("Product %d packed by '%s'", id, caller)
	return nil
}

// SellProduct lists a packed product for sale at the given price. The price
// is a positive decimal string in the smallest currency unit and is
// immutable once recorded.
func (s *FarmLinkSmartContract) SellProduct(ctx contractapi.TransactionContextInterface, productID string, price string) error {
	id, err := parseProductID(productID)
	if err != nil {
		return fmt.Errorf("SellProduct: %w", err)
	}
	priceValue, err := parseAmount(price, "price")
	if err != nil {
		return fmt.Errorf("SellProduct: %w", err)
	}
	if priceValue == 0 {
		return fmt.Errorf("SellProduct: %w: price must be positive", ErrInvalidInput)
	}

	product, caller, rule, err := s.loadProductForTransition(ctx, "sell", id)
	if err != nil {
		return fmt.Errorf("SellProduct: %w", err)
	}
	product.Price = priceValue
	if err := s.commitTransition(ctx, product, rule, caller); err != nil {
		return fmt.Errorf("SellProduct: %w", err)
	}

	s.emitProductEvent(ctx, "ProductForSale", product, caller, map[string]interface{}{
		"price": priceValue,
	})
	logger.Infof("Product %d listed for sale at %d by '%s'", id, priceValue, caller)
	return nil
}

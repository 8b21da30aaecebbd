package contract

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"farmlink/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// Counter names under the Counter namespace.
const (
	productCounterName    = "product"
	transitionCounterName = "transition"
)

// nextCounterValue increments and returns the named ledger counter. Counter
// values start at 1 and are never reused; Fabric's read/write set conflict
// detection serializes concurrent increments.
func (s *FarmLinkSmartContract) nextCounterValue(ctx contractapi.TransactionContextInterface, name string) (uint64, error) {
	counterKey, err := ctx.GetStub().CreateCompositeKey(counterObjectType, []string{name})
	if err != nil {
		return 0, fmt.Errorf("failed to create counter key '%s': %w", name, err)
	}
	current, err := s.readCounter(ctx, name)
	if err != nil {
		return 0, err
	}
	next := current + 1
	if err := ctx.GetStub().PutState(counterKey, []byte(strconv.FormatUint(next, 10))); err != nil {
		return 0, fmt.Errorf("failed to save counter '%s': %w", name, err)
	}
	return next, nil
}

// readCounter returns the named counter's current value, 0 if never written.
func (s *FarmLinkSmartContract) readCounter(ctx contractapi.TransactionContextInterface, name string) (uint64, error) {
	counterKey, err := ctx.GetStub().CreateCompositeKey(counterObjectType, []string{name})
	if err != nil {
		return 0, fmt.Errorf("failed to create counter key '%s': %w", name, err)
	}
	counterBytes, err := ctx.GetStub().GetState(counterKey)
	if err != nil {
		return 0, fmt.Errorf("failed to read counter '%s': %w", name, err)
	}
	if counterBytes == nil {
		return 0, nil
	}
	value, err := strconv.ParseUint(string(counterBytes), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("counter '%s' holds unparseable value '%s': %w", name, string(counterBytes), err)
	}
	return value, nil
}

// appendTransition writes one event log record under both the global
// sequence index and the per-product index. Records are immutable once
// appended; no deletion or mutation path exists.
func (s *FarmLinkSmartContract) appendTransition(ctx contractapi.TransactionContextInterface, productID uint64, fromState, toState model.ProductState, actor string, at time.Time) error {
	sequence, err := s.nextCounterValue(ctx, transitionCounterName)
	if err != nil {
		return fmt.Errorf("appendTransition: %w", err)
	}

	record := model.TransitionRecord{
		ObjectType: transitionObjectType,
		Sequence:   sequence,
		ProductID:  productID,
		FromState:  fromState,
		ToState:    toState,
		Actor:      actor,
		TxID:       ctx.GetStub().GetTxID(),
		Timestamp:  at,
	}
	recordBytes, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("appendTransition: failed to marshal record %d: %w", sequence, err)
	}

	globalKey, err := ctx.GetStub().CreateCompositeKey(transitionObjectType, []string{padSequence(sequence)})
	if err != nil {
		return fmt.Errorf("appendTransition: failed to create global key for record %d: %w", sequence, err)
	}
	if err := ctx.GetStub().PutState(globalKey, recordBytes); err != nil {
		return fmt.Errorf("appendTransition: failed to save record %d: %w", sequence, err)
	}

	productKey, err := ctx.GetStub().CreateCompositeKey(productTxObjectType, []string{padSequence(productID), padSequence(sequence)})
	if err != nil {
		return fmt.Errorf("appendTransition: failed to create product index key for record %d: %w", sequence, err)
	}
	if err := ctx.GetStub().PutState(productKey, recordBytes); err != nil {
		return fmt.Errorf("appendTransition: failed to save product index for record %d: %w", sequence, err)
	}

	logger.Debugf("Transition %d appended: product %d %s -> %s by '%s'", sequence, productID, fromState, toState, actor)
	return nil
}

// readProductHistory returns all transition records for one product in
// sequence order. Each call opens a fresh iterator, so re-querying always
// observes the completed history plus anything appended since.
func (s *FarmLinkSmartContract) readProductHistory(ctx contractapi.TransactionContextInterface, productID uint64) ([]model.TransitionRecord, error) {
	resultsIterator, err := ctx.GetStub().GetStateByPartialCompositeKey(productTxObjectType, []string{padSequence(productID)})
	if err != nil {
		return nil, fmt.Errorf("failed to get history iterator for product %d: %w", productID, err)
	}
	defer resultsIterator.Close()

	records := []model.TransitionRecord{}
	for resultsIterator.HasNext() {
		queryResponse, iterErr := resultsIterator.Next()
		if iterErr != nil {
			logger.Warningf("readProductHistory: failed to get next record for product %d: %v. Skipping.", productID, iterErr)
			continue
		}
		var record model.TransitionRecord
		if err := json.Unmarshal(queryResponse.Value, &record); err != nil {
			logger.Warningf("readProductHistory: failed to unmarshal record at key '%s': %v. Skipping.", queryResponse.Key, err)
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

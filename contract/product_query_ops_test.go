package contract

import (
	"testing"

	"farmlink/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductCount(t *testing.T) {
	h := newLedgerHarness(t)
	h.mustAssignRole(farmerAlice, "farmer")

	count := h.productCount()
	assert.Equal(t, uint64(0), count)

	h.mustHarvest(farmerAlice)
	h.mustHarvest(farmerAlice)
	assert.Equal(t, uint64(2), h.productCount())
}

func TestFetchProductNotFound(t *testing.T) {
	h := newLedgerHarness(t)
	h.mustAssignRole(farmerAlice, "farmer")
	h.mustHarvest(farmerAlice)

	_, err := h.fetch("2")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = h.fetch("0")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = h.fetch("first")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGetProductHistoryUnknownProduct(t *testing.T) {
	h := newLedgerHarness(t)

	_, err := h.history("7")
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestHistoryIsRestartable re-queries a trace after further transitions; the
// earlier records come back unchanged with the new entries appended.
func TestHistoryIsRestartable(t *testing.T) {
	h := newLedgerHarness(t)
	h.mustAssignRole(farmerAlice, "farmer")
	h.mustHarvest(farmerAlice)

	require.NoError(t, h.tx(farmerAlice, func(ctx *contractapi.TransactionContext) error {
		return h.contract.ProcessProduct(ctx, "1")
	}))
	first, err := h.history("1")
	require.NoError(t, err)
	require.Len(t, first, 1)

	require.NoError(t, h.tx(farmerAlice, func(ctx *contractapi.TransactionContext) error {
		return h.contract.PackProduct(ctx, "1")
	}))
	second, err := h.history("1")
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.Equal(t, first[0], second[0])
	assert.Equal(t, model.StatePacked, second[1].ToState)
}

// TestGlobalSequenceIsTotalOrdered interleaves two products and checks the
// event log's sequence numbers give one global happens-before order.
func TestGlobalSequenceIsTotalOrdered(t *testing.T) {
	h := newLedgerHarness(t)
	h.mustAssignRole(farmerAlice, "farmer")
	h.mustHarvest(farmerAlice)
	h.mustHarvest(farmerAlice)

	require.NoError(t, h.tx(farmerAlice, func(ctx *contractapi.TransactionContext) error {
		return h.contract.ProcessProduct(ctx, "1")
	}))
	require.NoError(t, h.tx(farmerAlice, func(ctx *contractapi.TransactionContext) error {
		return h.contract.ProcessProduct(ctx, "2")
	}))
	require.NoError(t, h.tx(farmerAlice, func(ctx *contractapi.TransactionContext) error {
		return h.contract.PackProduct(ctx, "1")
	}))

	historyOne, err := h.history("1")
	require.NoError(t, err)
	historyTwo, err := h.history("2")
	require.NoError(t, err)
	require.Len(t, historyOne, 2)
	require.Len(t, historyTwo, 1)

	assert.Equal(t, uint64(1), historyOne[0].Sequence)
	assert.Equal(t, uint64(2), historyTwo[0].Sequence)
	assert.Equal(t, uint64(3), historyOne[1].Sequence)
}

func TestGetProductsByHolder(t *testing.T) {
	h := newLedgerHarness(t)
	id := h.walkToForSale("100")
	h.mustDeposit(distributorBo, "100")
	require.NoError(t, h.tx(distributorBo, func(ctx *contractapi.TransactionContext) error {
		return h.contract.BuyProduct(ctx, "1", "100")
	}))
	h.mustHarvest(farmerAlice)

	// The farmer keeps appearing for sold product 1 through farmerId, and
	// holds product 2 outright.
	assert.Equal(t, []uint64{id, 2}, h.productsByHolder(farmerAlice))

	// The distributor now holds product 1.
	assert.Equal(t, []uint64{id}, h.productsByHolder(distributorBo))

	assert.Empty(t, h.productsByHolder(retailerCara))

	err := h.tx(consumerEve, func(ctx *contractapi.TransactionContext) error {
		_, err := h.contract.GetProductsByHolder(ctx, "  ")
		return err
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGetMyProducts(t *testing.T) {
	h := newLedgerHarness(t)
	h.mustAssignRole(farmerAlice, "farmer")
	h.mustAssignRole(farmerDave, "farmer")
	h.mustHarvest(farmerAlice)
	h.mustHarvest(farmerDave)
	h.mustHarvest(farmerAlice)

	var mine []*model.Product
	require.NoError(t, h.tx(farmerAlice, func(ctx *contractapi.TransactionContext) error {
		var err error
		mine, err = h.contract.GetMyProducts(ctx)
		return err
	}))
	require.Len(t, mine, 2)
	assert.Equal(t, uint64(1), mine[0].ID)
	assert.Equal(t, uint64(3), mine[1].ID)
}

func TestTraceProduct(t *testing.T) {
	h := newLedgerHarness(t)
	h.mustAssignRole(farmerAlice, "farmer")
	h.mustHarvest(farmerAlice)
	require.NoError(t, h.tx(farmerAlice, func(ctx *contractapi.TransactionContext) error {
		return h.contract.ProcessProduct(ctx, "1")
	}))

	var trace *model.ProductTrace
	require.NoError(t, h.tx(consumerEve, func(ctx *contractapi.TransactionContext) error {
		var err error
		trace, err = h.contract.TraceProduct(ctx, "1")
		return err
	}))
	require.NotNil(t, trace.Product)
	assert.Equal(t, model.StateProcessed, trace.Product.State)
	require.Len(t, trace.History, 1)
	assert.Equal(t, trace.Product.State, trace.History[0].ToState)
}

func (h *ledgerHarness) productCount() uint64 {
	h.t.Helper()
	var count uint64
	err := h.tx(consumerEve, func(ctx *contractapi.TransactionContext) error {
		var countErr error
		count, countErr = h.contract.ProductCount(ctx)
		return countErr
	})
	require.NoError(h.t, err)
	return count
}

func (h *ledgerHarness) productsByHolder(identity string) []uint64 {
	h.t.Helper()
	var ids []uint64
	err := h.tx(consumerEve, func(ctx *contractapi.TransactionContext) error {
		var idsErr error
		ids, idsErr = h.contract.GetProductsByHolder(ctx, identity)
		return idsErr
	})
	require.NoError(h.t, err)
	return ids
}

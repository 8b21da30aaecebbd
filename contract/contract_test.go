package contract

import (
	"crypto/x509"
	"fmt"
	"testing"
	"time"

	"farmlink/model"

	"github.com/hyperledger/fabric-chaincode-go/shimtest"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Test identities. Opaque strings in the X.509-derived shape the peer hands
// to chaincode; the contract treats them as opaque handles.
const (
	farmerAlice   = "x509::CN=alice::OU=farmers"
	farmerDave    = "x509::CN=dave::OU=farmers"
	distributorBo = "x509::CN=bo::OU=distributors"
	retailerCara  = "x509::CN=cara::OU=retailers"
	consumerEve   = "x509::CN=eve::OU=consumers"
	strangerZed   = "x509::CN=zed::OU=nobody"
)

// fakeClientIdentity satisfies cid.ClientIdentity for a fixed caller.
type fakeClientIdentity struct {
	id    string
	mspID string
}

func (f *fakeClientIdentity) GetID() (string, error)    { return f.id, nil }
func (f *fakeClientIdentity) GetMSPID() (string, error) { return f.mspID, nil }
func (f *fakeClientIdentity) GetX509Certificate() (*x509.Certificate, error) {
	return nil, nil
}
func (f *fakeClientIdentity) GetAttributeValue(string) (string, bool, error) {
	return "", false, nil
}
func (f *fakeClientIdentity) AssertAttributeValue(string, string) error { return nil }

// ledgerHarness drives the contract against a mock world state, one
// transaction per invoke, mirroring how the peer serializes writes.
type ledgerHarness struct {
	t        *testing.T
	stub     *shimtest.MockStub
	contract *FarmLinkSmartContract
	txSeq    int
}

func newLedgerHarness(t *testing.T) *ledgerHarness {
	stub := shimtest.NewMockStub("farmlink", nil)
	stub.TxTimestamp = timestamppb.New(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	return &ledgerHarness{t: t, stub: stub, contract: &FarmLinkSmartContract{}}
}

// tx runs fn inside a mock transaction with the given caller identity.
func (h *ledgerHarness) tx(identity string, fn func(ctx *contractapi.TransactionContext) error) error {
	h.txSeq++
	txID := fmt.Sprintf("tx%04d", h.txSeq)
	h.stub.MockTransactionStart(txID)
	defer h.stub.MockTransactionEnd(txID)
	return fn(h.ctx(identity))
}

func (h *ledgerHarness) ctx(identity string) *contractapi.TransactionContext {
	ctx := &contractapi.TransactionContext{}
	ctx.SetStub(h.stub)
	ctx.SetClientIdentity(&fakeClientIdentity{id: identity, mspID: "Org1MSP"})
	return ctx
}

func (h *ledgerHarness) assignRole(identity, role string) error {
	return h.tx(identity, func(ctx *contractapi.TransactionContext) error {
		return h.contract.AssignRole(ctx, role)
	})
}

func (h *ledgerHarness) mustAssignRole(identity, role string) {
	h.t.Helper()
	require.NoError(h.t, h.assignRole(identity, role))
}

func (h *ledgerHarness) harvest(identity, name, farmName, farmDescription, lat, lon string) (uint64, error) {
	var id uint64
	err := h.tx(identity, func(ctx *contractapi.TransactionContext) error {
		var harvestErr error
		id, harvestErr = h.contract.HarvestProduct(ctx, name, farmName, farmDescription, lat, lon)
		return harvestErr
	})
	return id, err
}

func (h *ledgerHarness) mustHarvest(identity string) uint64 {
	h.t.Helper()
	id, err := h.harvest(identity, "Tomato", "GreenAcres", "organic", "10.0", "20.0")
	require.NoError(h.t, err)
	return id
}

func (h *ledgerHarness) deposit(identity, amount string) error {
	return h.tx(identity, func(ctx *contractapi.TransactionContext) error {
		return h.contract.DepositFunds(ctx, amount)
	})
}

func (h *ledgerHarness) mustDeposit(identity, amount string) {
	h.t.Helper()
	require.NoError(h.t, h.deposit(identity, amount))
}

func (h *ledgerHarness) balance(identity string) string {
	h.t.Helper()
	var balance string
	err := h.tx(identity, func(ctx *contractapi.TransactionContext) error {
		var balErr error
		balance, balErr = h.contract.GetBalance(ctx)
		return balErr
	})
	require.NoError(h.t, err)
	return balance
}

func (h *ledgerHarness) fetch(productID string) (*model.Product, error) {
	var product *model.Product
	err := h.tx(consumerEve, func(ctx *contractapi.TransactionContext) error {
		var fetchErr error
		product, fetchErr = h.contract.FetchProduct(ctx, productID)
		return fetchErr
	})
	return product, err
}

func (h *ledgerHarness) mustFetch(productID string) *model.Product {
	h.t.Helper()
	product, err := h.fetch(productID)
	require.NoError(h.t, err)
	return product
}

func (h *ledgerHarness) history(productID string) ([]model.TransitionRecord, error) {
	var records []model.TransitionRecord
	err := h.tx(consumerEve, func(ctx *contractapi.TransactionContext) error {
		var histErr error
		records, histErr = h.contract.GetProductHistory(ctx, productID)
		return histErr
	})
	return records, err
}

// walkToForSale registers the convenience trio of participants, harvests one
// product and advances it to ForSale at the given price.
func (h *ledgerHarness) walkToForSale(price string) uint64 {
	h.t.Helper()
	h.mustAssignRole(farmerAlice, "farmer")
	h.mustAssignRole(distributorBo, "distributor")
	h.mustAssignRole(retailerCara, "retailer")

	id := h.mustHarvest(farmerAlice)
	idStr := fmt.Sprint(id)
	require.NoError(h.t, h.tx(farmerAlice, func(ctx *contractapi.TransactionContext) error {
		return h.contract.ProcessProduct(ctx, idStr)
	}))
	require.NoError(h.t, h.tx(farmerAlice, func(ctx *contractapi.TransactionContext) error {
		return h.contract.PackProduct(ctx, idStr)
	}))
	require.NoError(h.t, h.tx(farmerAlice, func(ctx *contractapi.TransactionContext) error {
		return h.contract.SellProduct(ctx, idStr, price)
	}))
	return id
}

package contract

import (
	"fmt"

	"farmlink/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric/common/flogging"
)

var logger = flogging.MustGetLogger("farmlink.supplychain")

// Object types used for composite keys, also usable as 'docType' for CouchDB
// queries.
const (
	productObjectType     = "Product"
	transitionObjectType  = "Transition"        // Global event log, keyed by sequence
	productTxObjectType   = "ProductTransition" // Per-product index into the event log
	counterObjectType     = "Counter"
	accountObjectType     = "Account"
	participantObjectType = "Participant"
)

// Constants for input validation and limits.
const (
	maxStringInputLength = 256
	maxDescriptionLength = 1024
)

// FarmLinkSmartContract provides functions for tracking farm products from
// harvest to retail. It owns the lifecycle state machine and enforces
// per-transition authorization through the role registry.
// @contract:FarmLinkSmartContract
type FarmLinkSmartContract struct {
	contractapi.Contract
}

// actorInfo holds commonly needed details about the transaction invoker.
type actorInfo struct {
	identity string
	role     model.Role
	mspID    string
}

// Instantiate is called during chaincode instantiation.
func (s *FarmLinkSmartContract) Instantiate(ctx contractapi.TransactionContextInterface) {
	logger.Info("FarmLinkSmartContract Instantiated/Upgraded")
}

// --- Role Registry Wrappers (Delegating to RoleRegistry) ---
// Direct pass-throughs to RoleRegistry, keeping the contract API clean.

// AssignRole binds the caller's identity to the given role. Assignment is
// one-shot: a second call for the same identity always fails, regardless of
// the role requested.
func (s *FarmLinkSmartContract) AssignRole(ctx contractapi.TransactionContextInterface, role string) error {
	logger.Infof("Chaincode Call: AssignRole '%s'", role)
	return NewRoleRegistry(ctx).AssignRole(role)
}

// RoleOf returns the role of the given identity, "unassigned" if the
// identity has no registry entry. It never fails on unknown identities.
func (s *FarmLinkSmartContract) RoleOf(ctx contractapi.TransactionContextInterface, identity string) (string, error) {
	logger.Debugf("Chaincode Call: RoleOf '%s'", identity)
	role, err := NewRoleRegistry(ctx).RoleOf(identity)
	if err != nil {
		return "", err
	}
	return string(role), nil
}

// GetMyRole returns the caller's own role, "unassigned" if none.
func (s *FarmLinkSmartContract) GetMyRole(ctx contractapi.TransactionContextInterface) (string, error) {
	logger.Debug("Chaincode Call: GetMyRole")
	reg := NewRoleRegistry(ctx)
	caller, err := reg.GetCurrentIdentity()
	if err != nil {
		return "", fmt.Errorf("GetMyRole: failed to get caller identity: %w", err)
	}
	role, err := reg.RoleOf(caller)
	if err != nil {
		return "", err
	}
	return string(role), nil
}

// GetParticipantsByRole lists the identities holding a given role, used to
// populate recipient pickers on the dashboards.
func (s *FarmLinkSmartContract) GetParticipantsByRole(ctx contractapi.TransactionContextInterface, role string) ([]string, error) {
	logger.Debugf("Chaincode Call: GetParticipantsByRole '%s'", role)
	return NewRoleRegistry(ctx).ParticipantsByRole(role)
}

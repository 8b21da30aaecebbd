package contract

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"farmlink/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric/common/flogging"
)

var regLogger = flogging.MustGetLogger("farmlink.roleregistry")

// ValidRoles defines the set of permissible roles in the system.
// "unassigned" is the default for unknown identities, never granted.
var ValidRoles = map[model.Role]bool{
	model.RoleFarmer:      true,
	model.RoleDistributor: true,
	model.RoleRetailer:    true,
	model.RoleConsumer:    true,
}

// RoleRegistry maps identities to their permanent role. Registry entries are
// written exactly once per identity and never overwritten or deleted.
type RoleRegistry struct {
	Ctx contractapi.TransactionContextInterface
}

// NewRoleRegistry creates a new instance of RoleRegistry.
func NewRoleRegistry(ctx contractapi.TransactionContextInterface) *RoleRegistry {
	return &RoleRegistry{Ctx: ctx}
}

func (r *RoleRegistry) getCurrentTxTimestamp() (time.Time, error) {
	ts, err := r.Ctx.GetStub().GetTxTimestamp()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get transaction timestamp: %w", err)
	}
	return ts.AsTime(), nil
}

func (r *RoleRegistry) createParticipantCompositeKey(identity string) (string, error) {
	return r.Ctx.GetStub().CreateCompositeKey(participantObjectType, []string{identity})
}

// GetCurrentIdentity retrieves the full identity string of the current
// transactor. How that identity authenticated is external to this contract;
// it is used only as an authorization input.
func (r *RoleRegistry) GetCurrentIdentity() (string, error) {
	clientIdentity := r.Ctx.GetClientIdentity()
	if clientIdentity == nil {
		return "", fmt.Errorf("client identity is nil from context")
	}
	id, err := clientIdentity.GetID()
	if err != nil {
		return "", fmt.Errorf("failed to get client identity ID from context: %w", err)
	}
	if id == "" {
		return "", fmt.Errorf("client identity ID from context is empty")
	}
	return id, nil
}

// AssignRole grants the given role to the caller's identity. The grant is
// one-shot: any second call for the same identity fails with
// ErrAlreadyAssigned, even when the same role is requested again.
func (r *RoleRegistry) AssignRole(role string) error {
	callerID, err := r.GetCurrentIdentity()
	if err != nil {
		return fmt.Errorf("AssignRole: failed to get caller identity: %w", err)
	}

	roleLower := model.Role(strings.ToLower(strings.TrimSpace(role)))
	if !ValidRoles[roleLower] {
		return fmt.Errorf("AssignRole: %w: role '%s' is not one of farmer, distributor, retailer, consumer", ErrInvalidInput, role)
	}

	participantKey, err := r.createParticipantCompositeKey(callerID)
	if err != nil {
		return fmt.Errorf("AssignRole: failed to create participant key for '%s': %w", callerID, err)
	}
	existing, err := r.Ctx.GetStub().GetState(participantKey)
	if err != nil {
		return fmt.Errorf("AssignRole: failed to read participant state for '%s': %w", callerID, err)
	}
	if existing != nil {
		var info model.ParticipantInfo
		if errUnmarshal := json.Unmarshal(existing, &info); errUnmarshal == nil {
			return fmt.Errorf("AssignRole: %w: identity '%s' already holds role '%s'", ErrAlreadyAssigned, callerID, info.Role)
		}
		return fmt.Errorf("AssignRole: %w: identity '%s' is already registered", ErrAlreadyAssigned, callerID)
	}

	now, err := r.getCurrentTxTimestamp()
	if err != nil {
		return err
	}

	mspID := ""
	if clientIdentity := r.Ctx.GetClientIdentity(); clientIdentity != nil {
		if id, mspErr := clientIdentity.GetMSPID(); mspErr != nil {
			regLogger.Warningf("Could not determine MSPID for identity %s: %v. Storing empty MSPID.", callerID, mspErr)
		} else {
			mspID = id
		}
	}

	info := model.ParticipantInfo{
		ObjectType:   participantObjectType,
		Identity:     callerID,
		Role:         roleLower,
		MSPID:        mspID,
		RegisteredAt: now,
	}
	infoBytes, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("AssignRole: failed to marshal ParticipantInfo for '%s': %w", callerID, err)
	}
	if err := r.Ctx.GetStub().PutState(participantKey, infoBytes); err != nil {
		return fmt.Errorf("AssignRole: failed to save ParticipantInfo for '%s': %w", callerID, err)
	}
	regLogger.Infof("Role '%s' assigned to identity '%s'", roleLower, callerID)
	return nil
}

// RoleOf is a pure lookup. Unknown identities resolve to RoleUnassigned; the
// only errors are ledger read failures.
func (r *RoleRegistry) RoleOf(identity string) (model.Role, error) {
	trimmed := strings.TrimSpace(identity)
	if trimmed == "" {
		return model.RoleUnassigned, nil
	}
	participantKey, err := r.createParticipantCompositeKey(trimmed)
	if err != nil {
		return model.RoleUnassigned, fmt.Errorf("RoleOf: failed to create participant key for '%s': %w", trimmed, err)
	}
	infoBytes, err := r.Ctx.GetStub().GetState(participantKey)
	if err != nil {
		return model.RoleUnassigned, fmt.Errorf("RoleOf: ledger error reading participant '%s': %w", trimmed, err)
	}
	if infoBytes == nil {
		return model.RoleUnassigned, nil
	}
	var info model.ParticipantInfo
	if err := json.Unmarshal(infoBytes, &info); err != nil {
		return model.RoleUnassigned, fmt.Errorf("RoleOf: failed to unmarshal ParticipantInfo for '%s': %w", trimmed, err)
	}
	return info.Role, nil
}

// RequireRole checks that the current caller holds the given role and
// returns the caller's identity on success.
func (r *RoleRegistry) RequireRole(requiredRole model.Role) (string, error) {
	callerID, err := r.GetCurrentIdentity()
	if err != nil {
		return "", fmt.Errorf("RequireRole: %w", err)
	}
	role, err := r.RoleOf(callerID)
	if err != nil {
		return "", fmt.Errorf("RequireRole: failed to look up role for '%s': %w", callerID, err)
	}
	if role != requiredRole {
		return "", fmt.Errorf("%w: identity '%s' holds role '%s', operation requires '%s'", ErrUnauthorized, callerID, role, requiredRole)
	}
	regLogger.Debugf("Role check passed for role '%s' for identity '%s'", requiredRole, callerID)
	return callerID, nil
}

// ParticipantsByRole returns the identities registered with the given role.
func (r *RoleRegistry) ParticipantsByRole(role string) ([]string, error) {
	roleLower := model.Role(strings.ToLower(strings.TrimSpace(role)))
	if !ValidRoles[roleLower] {
		return nil, fmt.Errorf("ParticipantsByRole: %w: role '%s' is not one of farmer, distributor, retailer, consumer", ErrInvalidInput, role)
	}

	resultsIterator, err := r.Ctx.GetStub().GetStateByPartialCompositeKey(participantObjectType, []string{})
	if err != nil {
		return nil, fmt.Errorf("ParticipantsByRole: failed to get participants iterator: %w", err)
	}
	defer resultsIterator.Close()

	identities := []string{}
	for resultsIterator.HasNext() {
		queryResponse, iterErr := resultsIterator.Next()
		if iterErr != nil {
			regLogger.Warningf("ParticipantsByRole: failed to get next participant from iterator: %v. Skipping.", iterErr)
			continue
		}
		var info model.ParticipantInfo
		if err := json.Unmarshal(queryResponse.Value, &info); err != nil {
			regLogger.Warningf("ParticipantsByRole: failed to unmarshal participant data for key '%s': %v. Skipping.", queryResponse.Key, err)
			continue
		}
		if info.Role == roleLower {
			identities = append(identities, info.Identity)
		}
	}
	regLogger.Infof("ParticipantsByRole: returning %d identities for role '%s'", len(identities), roleLower)
	return identities, nil
}

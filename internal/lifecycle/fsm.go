// Package lifecycle implements the asset lifecycle state machine and the
// approval-gated transition service.
package lifecycle

import (
	"github.com/assetflow/backend/internal/domain"
)

// validTransitions is the lifecycle graph. LostStolen is reachable from
// every non-terminal state via the universal edge handled in CanTransition.
var validTransitions = map[domain.AssetState][]domain.AssetState{
	domain.StatePlanning:    {domain.StateProcurement},
	domain.StateProcurement: {domain.StateReceived},
	domain.StateReceived:    {domain.StateInInventory},
	domain.StateInInventory: {
		domain.StateDeployed, domain.StateInUse, domain.StateRentedOut,
	},
	domain.StateInUse:     {domain.StateInInventory},
	domain.StateRentedOut: {domain.StateInInventory},
	domain.StateDeployed: {
		domain.StateUnderMaintenance, domain.StateUnderRepair,
		domain.StateUnderConversion, domain.StateRetired,
		domain.StateRentedOut,
	},
	domain.StateUnderMaintenance: {domain.StateDeployed},
	domain.StateUnderRepair:      {domain.StateDeployed},
	domain.StateUnderConversion:  {domain.StateDeployed},
	domain.StateRetired:          {domain.StateDisposed},
	domain.StateLostStolen:       {domain.StateArchived},
}

// CanTransition reports whether from -> to is an allowed edge.
func CanTransition(from, to domain.AssetState) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	// Universal sink: any non-terminal state can be declared lost/stolen.
	if to == domain.StateLostStolen {
		return !from.IsTerminal() && from != domain.StateLostStolen
	}
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ValidTransitions returns every state reachable from the given state.
// LostStolen is always included for non-terminal states.
func ValidTransitions(from domain.AssetState) []domain.AssetState {
	if !from.Valid() || from.IsTerminal() {
		return nil
	}
	out := make([]domain.AssetState, 0, len(validTransitions[from])+1)
	out = append(out, validTransitions[from]...)
	if from != domain.StateLostStolen {
		out = append(out, domain.StateLostStolen)
	}
	return out
}

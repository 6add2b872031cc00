package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/assetflow/backend/internal/domain"
)

func TestCanTransition_HappyPathChain(t *testing.T) {
	chain := []domain.AssetState{
		domain.StatePlanning, domain.StateProcurement, domain.StateReceived,
		domain.StateInInventory, domain.StateDeployed,
	}
	for i := 0; i < len(chain)-1; i++ {
		assert.True(t, CanTransition(chain[i], chain[i+1]),
			"%s -> %s should be allowed", chain[i], chain[i+1])
	}
}

func TestCanTransition_MaintenanceRoundTrip(t *testing.T) {
	for _, via := range []domain.AssetState{
		domain.StateUnderMaintenance, domain.StateUnderRepair, domain.StateUnderConversion,
	} {
		assert.True(t, CanTransition(domain.StateDeployed, via))
		assert.True(t, CanTransition(via, domain.StateDeployed))
	}
}

func TestCanTransition_UniversalLostStolenEdge(t *testing.T) {
	for _, from := range domain.AllStates() {
		if from.IsTerminal() || from == domain.StateLostStolen {
			continue
		}
		assert.True(t, CanTransition(from, domain.StateLostStolen),
			"%s -> lost_stolen must always be allowed", from)
	}
}

func TestCanTransition_TerminalStatesHaveNoExits(t *testing.T) {
	for _, terminal := range []domain.AssetState{domain.StateDisposed, domain.StateArchived} {
		for _, to := range domain.AllStates() {
			assert.False(t, CanTransition(terminal, to),
				"%s is terminal, %s must be unreachable", terminal, to)
		}
	}
}

func TestCanTransition_IllegalEdges(t *testing.T) {
	cases := []struct{ from, to domain.AssetState }{
		{domain.StatePlanning, domain.StateDeployed},
		{domain.StateInInventory, domain.StateRetired},
		{domain.StateDeployed, domain.StateArchived},
		{domain.StateRetired, domain.StateDeployed},
	}
	for _, c := range cases {
		assert.False(t, CanTransition(c.from, c.to), "%s -> %s", c.from, c.to)
	}
}

func TestCanTransition_ArchivedOnlyFromLostStolen(t *testing.T) {
	assert.True(t, CanTransition(domain.StateLostStolen, domain.StateArchived))
	for _, from := range domain.AllStates() {
		if from == domain.StateLostStolen {
			continue
		}
		assert.False(t, CanTransition(from, domain.StateArchived),
			"archived must only be reachable from lost_stolen, not %s", from)
	}
}

func TestValidTransitions_IncludesLostStolen(t *testing.T) {
	targets := ValidTransitions(domain.StateDeployed)
	assert.Contains(t, targets, domain.StateLostStolen)
	assert.Contains(t, targets, domain.StateRetired)
	assert.NotContains(t, targets, domain.StateArchived)
}

func TestValidTransitions_TerminalIsEmpty(t *testing.T) {
	assert.Empty(t, ValidTransitions(domain.StateDisposed))
	assert.Empty(t, ValidTransitions(domain.StateArchived))
}

func TestDefaultGates_RetirementRequiresApproval(t *testing.T) {
	svc := &Service{gates: DefaultGates}
	assert.True(t, svc.RequiresApproval(domain.StateDeployed, domain.StateRetired))
	assert.True(t, svc.RequiresApproval(domain.StateRetired, domain.StateDisposed))
	assert.True(t, svc.RequiresApproval(domain.StateDeployed, domain.StateLostStolen))
	assert.False(t, svc.RequiresApproval(domain.StateInInventory, domain.StateDeployed))
}

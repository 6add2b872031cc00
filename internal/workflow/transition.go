package workflow

import (
	"context"
	"encoding/json"

	"github.com/assetflow/backend/internal/domain"
	"github.com/assetflow/backend/internal/events"
	"github.com/assetflow/backend/internal/lifecycle"
)

// TransitionGate bridges the lifecycle service and the approval gate: an
// ungated transition executes immediately, a gated one opens a two-level
// approval request whose executor replays the move on final sign-off.
type TransitionGate struct {
	lifecycle *lifecycle.Service
	approvals *ApprovalService
	emitter   events.Emitter
}

// NewTransitionGate creates the gate and binds it as the executor for the
// lifecycle_transition resource type.
func NewTransitionGate(lc *lifecycle.Service, approvals *ApprovalService, emitter events.Emitter) *TransitionGate {
	g := &TransitionGate{lifecycle: lc, approvals: approvals, emitter: emitter}
	approvals.RegisterExecutor(domain.ResourceLifecycleTransition,
		ExecutorFunc(g.executeApproved))
	return g
}

// transitionSnapshot is frozen onto the approval request so the executor
// can replay exactly what was asked for.
type transitionSnapshot struct {
	From   domain.AssetState `json:"from"`
	To     domain.AssetState `json:"to"`
	Reason string            `json:"reason,omitempty"`
}

// Transition runs a lifecycle transition through the gate.
func (g *TransitionGate) Transition(ctx context.Context, assetID string, target domain.AssetState, reason string, claims *domain.UserClaims) (*lifecycle.Result, *domain.ApprovalRequest, error) {
	res, err := g.lifecycle.RequestTransition(ctx, assetID, orgScope(claims),
		target, reason, claims.UserID)
	if err != nil {
		return nil, nil, err
	}
	if res.Executed {
		g.emitter.Emit(events.TypeAssetTransitioned, assetID, map[string]any{
			"from":   string(res.From),
			"to":     string(res.To),
			"reason": reason,
		})
		return res, nil, nil
	}

	req, err := g.approvals.Create(ctx, domain.ResourceLifecycleTransition,
		assetID, "transition", transitionSnapshot{
			From:   res.From,
			To:     res.To,
			Reason: reason,
		}, claims)
	if err != nil {
		return nil, nil, err
	}
	return res, req, nil
}

// executeApproved replays a finally-approved transition. The status guard
// in the lifecycle service makes a duplicate execution fail cleanly when
// the asset has already moved.
func (g *TransitionGate) executeApproved(ctx context.Context, req *domain.ApprovalRequest) error {
	var snap transitionSnapshot
	if err := json.Unmarshal(req.Snapshot, &snap); err != nil {
		return domain.ErrValidation("snapshot", "transition snapshot is corrupt")
	}
	history, err := g.lifecycle.Execute(ctx, req.ResourceID, snap.From, snap.To,
		snap.Reason, req.L2ApproverID, map[string]any{"approval_id": req.ID})
	if err != nil {
		return err
	}
	g.emitter.Emit(events.TypeAssetTransitioned, req.ResourceID, map[string]any{
		"from":        string(history.FromState),
		"to":          string(history.ToState),
		"approval_id": req.ID,
	})
	return nil
}

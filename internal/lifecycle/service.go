package lifecycle

import (
	"context"
	"database/sql"
	"log"

	"github.com/assetflow/backend/internal/database"
	"github.com/assetflow/backend/internal/domain"
	"github.com/assetflow/backend/internal/repository"
)

// GatePair identifies a transition that must pass two-level approval
// before it executes.
type GatePair struct {
	From domain.AssetState
	To   domain.AssetState
}

// DefaultGates are the transitions gated by approval out of the box:
// taking an asset out of service is a two-person decision.
var DefaultGates = map[GatePair]bool{
	{domain.StateDeployed, domain.StateRetired}:    true,
	{domain.StateRetired, domain.StateDisposed}:    true,
	{domain.StateDeployed, domain.StateLostStolen}: true,
}

// Result is the outcome of a transition request: either the executed
// history row, or a signal that an approval request must be created.
type Result struct {
	Executed         bool
	History          *domain.LifecycleHistory
	RequiresApproval bool
	From             domain.AssetState
	To               domain.AssetState
}

// Service executes lifecycle transitions transactionally.
type Service struct {
	db     *database.DB
	assets *repository.AssetRepository
	gates  map[GatePair]bool
	logger *log.Logger
}

// NewService creates the lifecycle service. gates nil means DefaultGates.
func NewService(db *database.DB, assets *repository.AssetRepository, gates map[GatePair]bool) *Service {
	if gates == nil {
		gates = DefaultGates
	}
	return &Service{
		db:     db,
		assets: assets,
		gates:  gates,
		logger: log.New(log.Writer(), "[Lifecycle] ", log.LstdFlags),
	}
}

// RequestTransition validates the edge and either executes it or reports
// that an approval request is required. actorID must be a real user;
// requests with no actor are rejected.
func (s *Service) RequestTransition(ctx context.Context, assetID, orgID string, target domain.AssetState, reason, actorID string) (*Result, error) {
	if actorID == "" {
		return nil, domain.ErrValidation("actor_id", "transition requester is required")
	}
	if !target.Valid() {
		return nil, domain.ErrValidation("target_state", "unknown state "+string(target))
	}

	asset, err := s.assets.GetByID(ctx, s.db, assetID, orgID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(asset.Status, target) {
		return nil, domain.ErrStateTransition(string(asset.Status), string(target))
	}

	if s.gates[GatePair{asset.Status, target}] {
		return &Result{RequiresApproval: true, From: asset.Status, To: target}, nil
	}

	history, err := s.Execute(ctx, assetID, asset.Status, target, reason, actorID, nil)
	if err != nil {
		return nil, err
	}
	return &Result{Executed: true, History: history, From: asset.Status, To: target}, nil
}

// Execute performs the transition atomically: the guarded status update
// and the history insert commit together. The guard on the current status
// makes duplicate approval executions a no-op failure rather than a
// double transition.
func (s *Service) Execute(ctx context.Context, assetID string, from, to domain.AssetState, reason, actorID string, metadata map[string]any) (*domain.LifecycleHistory, error) {
	if !CanTransition(from, to) {
		return nil, domain.ErrStateTransition(string(from), string(to))
	}
	history := &domain.LifecycleHistory{
		AssetID:   assetID,
		FromState: from,
		ToState:   to,
		Reason:    reason,
		ActorID:   actorID,
		Metadata:  metadata,
	}
	err := s.db.WithinTx(ctx, func(tx *sql.Tx) error {
		if err := s.assets.UpdateStatus(ctx, tx, assetID, from, to); err != nil {
			return err
		}
		return s.assets.InsertHistory(ctx, tx, history)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Printf("asset %s: %s -> %s (%s)", assetID, from, to, reason)
	return history, nil
}

// ExecuteInTx performs the same atomic pair inside an existing workflow
// transaction. Used by loan/rental/work-order commands that flip asset
// state as a side effect.
func (s *Service) ExecuteInTx(ctx context.Context, tx *sql.Tx, assetID string, from, to domain.AssetState, reason, actorID string) (*domain.LifecycleHistory, error) {
	if !CanTransition(from, to) {
		return nil, domain.ErrStateTransition(string(from), string(to))
	}
	if err := s.assets.UpdateStatus(ctx, tx, assetID, from, to); err != nil {
		return nil, err
	}
	history := &domain.LifecycleHistory{
		AssetID:   assetID,
		FromState: from,
		ToState:   to,
		Reason:    reason,
		ActorID:   actorID,
	}
	if err := s.assets.InsertHistory(ctx, tx, history); err != nil {
		return nil, err
	}
	return history, nil
}

// History returns the asset's lifecycle trail.
func (s *Service) History(ctx context.Context, assetID string) ([]*domain.LifecycleHistory, error) {
	return s.assets.ListHistory(ctx, s.db, assetID)
}

// RequiresApproval reports whether the pair is gated.
func (s *Service) RequiresApproval(from, to domain.AssetState) bool {
	return s.gates[GatePair{from, to}]
}

package workflow

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"

	"github.com/shopspring/decimal"

	"github.com/assetflow/backend/internal/database"
	"github.com/assetflow/backend/internal/domain"
	"github.com/assetflow/backend/internal/lifecycle"
	"github.com/assetflow/backend/internal/repository"
)

// ConversionService converts an asset to another category, capitalizing
// the conversion cost into the purchase price. Conversions are approval
// gated: Request opens an approval request, and the bound executor calls
// Execute once level 2 signs off.
type ConversionService struct {
	db        *database.DB
	assets    *repository.AssetRepository
	approvals *ApprovalService
	lifecycle *lifecycle.Service
	logger    *log.Logger
}

// NewConversionService creates a ConversionService and binds it as the
// executor for the asset_conversion resource type.
func NewConversionService(db *database.DB, assets *repository.AssetRepository, approvals *ApprovalService, lc *lifecycle.Service) *ConversionService {
	s := &ConversionService{
		db:        db,
		assets:    assets,
		approvals: approvals,
		lifecycle: lc,
		logger:    log.New(log.Writer(), "[Conversions] ", log.LstdFlags),
	}
	approvals.RegisterExecutor(domain.ResourceAssetConversion,
		ExecutorFunc(s.executeApproved))
	return s
}

// ConversionRequest is the conversion snapshot frozen onto the approval
// request at creation time.
type ConversionRequest struct {
	NewCategoryID  string          `json:"new_category_id" validate:"required"`
	ConversionCost decimal.Decimal `json:"conversion_cost"`
	Reason         string          `json:"reason"`
}

// Request validates the conversion and opens the two-level approval gate.
// Nothing changes on the asset until final approval.
func (s *ConversionService) Request(ctx context.Context, assetID string, req ConversionRequest, claims *domain.UserClaims) (*domain.ApprovalRequest, error) {
	asset, err := s.assets.GetByID(ctx, s.db, assetID, orgScope(claims))
	if err != nil {
		return nil, err
	}
	if req.NewCategoryID == "" {
		return nil, domain.ErrValidation("new_category_id", "target category is required")
	}
	if req.NewCategoryID == asset.CategoryID {
		return nil, domain.ErrBusinessRule("conversion_noop",
			"asset "+asset.ID+" is already in category "+req.NewCategoryID)
	}
	if req.ConversionCost.IsNegative() {
		return nil, domain.ErrValidation("conversion_cost", "must not be negative")
	}
	if asset.Status.IsTerminal() {
		return nil, domain.ErrBusinessRule("asset_terminal",
			"asset "+asset.ID+" is "+string(asset.Status))
	}
	return s.approvals.Create(ctx, domain.ResourceAssetConversion, asset.ID,
		"convert_category", req, claims)
}

// executeApproved applies a finally-approved conversion: category swap,
// cost capitalization and the history row commit together.
func (s *ConversionService) executeApproved(ctx context.Context, req *domain.ApprovalRequest) error {
	var conv ConversionRequest
	if err := json.Unmarshal(req.Snapshot, &conv); err != nil {
		return domain.ErrValidation("snapshot", "conversion snapshot is corrupt")
	}
	asset, err := s.assets.GetByID(ctx, s.db, req.ResourceID, "")
	if err != nil {
		return err
	}
	if asset.CategoryID == conv.NewCategoryID {
		// Already applied; a retried execution is a no-op.
		return nil
	}

	oldCategory := asset.CategoryID
	asset.CategoryID = conv.NewCategoryID
	asset.PurchasePrice = asset.PurchasePrice.Add(conv.ConversionCost)

	err = s.db.WithinTx(ctx, func(tx *sql.Tx) error {
		if err := s.assets.Update(ctx, tx, asset); err != nil {
			return err
		}
		return s.assets.InsertHistory(ctx, tx, &domain.LifecycleHistory{
			AssetID:   asset.ID,
			FromState: asset.Status,
			ToState:   asset.Status,
			Reason:    "converted_to_category_" + conv.NewCategoryID,
			ActorID:   req.L2ApproverID,
			Metadata: map[string]any{
				"old_category_id": oldCategory,
				"new_category_id": conv.NewCategoryID,
				"conversion_cost": conv.ConversionCost.String(),
				"approval_id":     req.ID,
			},
		})
	})
	if err != nil {
		return err
	}
	s.logger.Printf("asset %s converted %s -> %s (+%s)",
		asset.ID, oldCategory, conv.NewCategoryID, conv.ConversionCost)
	return nil
}

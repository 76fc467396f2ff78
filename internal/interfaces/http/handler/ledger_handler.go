package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appledger "github.com/invest/ledger/internal/application/ledger"
	"github.com/invest/ledger/internal/domain/ledger"
	"github.com/invest/ledger/internal/interfaces/http/dto"
	"github.com/invest/ledger/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// LedgerCommands is the mutating side of the ledger
type LedgerCommands interface {
	RegisterProject(ctx context.Context, cmd appledger.RegisterProjectCommand) (*appledger.ProjectResponse, error)
	ChangeProjectStatus(ctx context.Context, cmd appledger.ChangeProjectStatusCommand) (*appledger.ProjectResponse, error)
	CreateInvestment(ctx context.Context, cmd appledger.CreateInvestmentCommand) (*appledger.InvestmentResponse, error)
	ConfirmInvestment(ctx context.Context, cmd appledger.ConfirmInvestmentCommand) (*appledger.InvestmentResponse, error)
	CancelInvestment(ctx context.Context, cmd appledger.CancelInvestmentCommand) (*appledger.InvestmentResponse, error)
	CompleteInvestment(ctx context.Context, cmd appledger.CompleteInvestmentCommand) (*appledger.InvestmentResponse, error)
	UpdateInvestmentDetails(ctx context.Context, cmd appledger.UpdateInvestmentDetailsCommand) (*appledger.InvestmentResponse, error)
	ApplyPayment(ctx context.Context, cmd appledger.ApplyPaymentCommand) (*appledger.PaymentPlanResponse, error)
	SweepOverdue(ctx context.Context, cmd appledger.SweepOverdueCommand) (*appledger.PaymentPlanResponse, error)
	WaiveInstallment(ctx context.Context, cmd appledger.WaiveInstallmentCommand) (*appledger.PaymentPlanResponse, error)
	UpdatePlanTerms(ctx context.Context, cmd appledger.UpdatePlanTermsCommand) (*appledger.PaymentPlanResponse, error)
}

// LedgerQueries is the read side of the ledger
type LedgerQueries interface {
	GetProject(ctx context.Context, projectID uuid.UUID) (*appledger.ProjectResponse, error)
	GetProjectFunding(ctx context.Context, projectID uuid.UUID) (*appledger.ProjectFundingResponse, error)
	GetInvestment(ctx context.Context, investmentID uuid.UUID) (*appledger.InvestmentResponse, error)
	ListInvestments(ctx context.Context, filter ledger.InvestmentFilter) ([]appledger.InvestmentResponse, int64, error)
	GetPlanSummary(ctx context.Context, planID uuid.UUID) (*appledger.PaymentPlanResponse, error)
	SumPlans(ctx context.Context, filter ledger.PlanSumFilter) (*appledger.PlanTotalsResponse, error)
	FinancialOverview(ctx context.Context, from, to *time.Time) (*appledger.FinancialOverviewResponse, error)
	ListInstallments(ctx context.Context, filter appledger.InstallmentListFilter) ([]appledger.InstallmentListItemResponse, int64, error)
	ListReceipts(ctx context.Context, planID uuid.UUID) ([]ledger.PaymentReceipt, error)
	AuditTrail(ctx context.Context, entityType string, entityID uuid.UUID) ([]ledger.AuditEntry, error)
}

// StatementExporter exports plan statements to object storage
type StatementExporter interface {
	ExportPlanStatement(ctx context.Context, actorID string, planID uuid.UUID) (*appledger.StatementResponse, error)
}

// SweepRunner sweeps every plan with outstanding installments
type SweepRunner interface {
	SweepAllOverdue(ctx context.Context, asOf time.Time) (*appledger.SweepStats, error)
}

// LedgerHandler serves /api/v1/ledger
type LedgerHandler struct {
	BaseHandler
	commands   LedgerCommands
	queries    LedgerQueries
	statements StatementExporter
	sweeps     SweepRunner
	now        func() time.Time
}

// NewLedgerHandler creates a LedgerHandler
func NewLedgerHandler(commands LedgerCommands, queries LedgerQueries, statements StatementExporter, sweeps SweepRunner, log *zap.Logger) *LedgerHandler {
	return &LedgerHandler{
		BaseHandler: newBaseHandler(log),
		commands:    commands,
		queries:     queries,
		statements:  statements,
		sweeps:      sweeps,
		now:         time.Now,
	}
}

// RegisterProject handles POST /projects
func (h *LedgerHandler) RegisterProject(c *gin.Context) {
	var req dto.RegisterProjectRequest
	if !h.bindJSON(c, &req) {
		return
	}

	project, err := h.commands.RegisterProject(c.Request.Context(), appledger.RegisterProjectCommand{
		ActorID:            middleware.ActorID(c),
		Name:               req.Name,
		TargetAmount:       req.TargetAmount,
		MinInvestment:      req.MinInvestment,
		MaxInvestment:      req.MaxInvestment,
		ExpectedReturnRate: req.ExpectedReturnRate,
		DurationMonths:     req.DurationMonths,
		Status:             ledger.ProjectStatus(req.Status),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, project)
}

// GetProject handles GET /projects/:id
func (h *LedgerHandler) GetProject(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	project, err := h.queries.GetProject(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, project)
}

// GetProjectFunding handles GET /projects/:id/funding
func (h *LedgerHandler) GetProjectFunding(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	funding, err := h.queries.GetProjectFunding(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, funding)
}

// ChangeProjectStatus handles POST /projects/:id/status
func (h *LedgerHandler) ChangeProjectStatus(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.ChangeProjectStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}

	project, err := h.commands.ChangeProjectStatus(c.Request.Context(), appledger.ChangeProjectStatusCommand{
		ActorID:   middleware.ActorID(c),
		ProjectID: id,
		Status:    ledger.ProjectStatus(req.Status),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, project)
}

// AuditTrail handles GET /{projects,investments,plans}/:id/audit
func (h *LedgerHandler) AuditTrail(entityType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := h.pathUUID(c, "id")
		if !ok {
			return
		}
		entries, err := h.queries.AuditTrail(c.Request.Context(), entityType, id)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		out := make([]dto.AuditEntryResponse, len(entries))
		for i := range entries {
			out[i] = dto.NewAuditEntryResponse(entries[i])
		}
		h.Success(c, out)
	}
}

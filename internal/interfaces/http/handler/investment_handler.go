package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appledger "github.com/invest/ledger/internal/application/ledger"
	"github.com/invest/ledger/internal/domain/ledger"
	"github.com/invest/ledger/internal/domain/shared"
	"github.com/invest/ledger/internal/interfaces/http/dto"
	"github.com/invest/ledger/internal/interfaces/http/middleware"
)

// CreateInvestment handles POST /investments
func (h *LedgerHandler) CreateInvestment(c *gin.Context) {
	var req dto.CreateInvestmentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	cmd := appledger.CreateInvestmentCommand{
		ActorID:          middleware.ActorID(c),
		ProjectID:        uuid.MustParse(req.ProjectID),
		UserID:           uuid.MustParse(req.UserID),
		Amount:           req.Amount,
		PaymentType:      ledger.PaymentType(req.PaymentType),
		PaymentMethod:    req.PaymentMethod,
		ReferenceNumber:  req.ReferenceNumber,
		Notes:            req.Notes,
		RiskAcknowledged: req.RiskAcknowledged,
	}
	if spec := req.Installments; spec != nil {
		cmd.Installments = &appledger.InstallmentSpecInput{
			Count:           spec.Count,
			Frequency:       ledger.PaymentFrequency(spec.Frequency),
			StartDate:       parseDate(spec.StartDate),
			InterestRate:    spec.InterestRate,
			LateFeeRate:     spec.LateFeeRate,
			GracePeriodDays: spec.GracePeriodDays,
		}
	}

	inv, err := h.commands.CreateInvestment(c.Request.Context(), cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, inv)
}

// GetInvestment handles GET /investments/:id
func (h *LedgerHandler) GetInvestment(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	inv, err := h.queries.GetInvestment(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, inv)
}

// ListInvestments handles GET /investments
func (h *LedgerHandler) ListInvestments(c *gin.Context) {
	var q dto.ListInvestmentsQuery
	if !h.bindQuery(c, &q) {
		return
	}
	q.Normalize()

	filter := ledger.InvestmentFilter{
		Filter: shared.Filter{
			Page:     q.Page,
			PageSize: q.PageSize,
			OrderBy:  q.OrderBy,
			OrderDir: q.OrderDir,
		},
		UserID:    optionalUUID(q.UserID),
		ProjectID: optionalUUID(q.ProjectID),
	}
	if q.Status != "" {
		status := ledger.InvestmentStatus(q.Status)
		filter.Status = &status
	}

	items, total, err := h.queries.ListInvestments(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, items, total, q.Page, q.PageSize)
}

// ConfirmInvestment handles POST /investments/:id/confirm
func (h *LedgerHandler) ConfirmInvestment(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	inv, err := h.commands.ConfirmInvestment(c.Request.Context(), appledger.ConfirmInvestmentCommand{
		ActorID:      middleware.ActorID(c),
		InvestmentID: id,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, inv)
}

// CancelInvestment handles POST /investments/:id/cancel
func (h *LedgerHandler) CancelInvestment(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.CancelInvestmentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	inv, err := h.commands.CancelInvestment(c.Request.Context(), appledger.CancelInvestmentCommand{
		ActorID:      middleware.ActorID(c),
		InvestmentID: id,
		Reason:       req.Reason,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, inv)
}

// CompleteInvestment handles POST /investments/:id/complete. The body is
// optional.
func (h *LedgerHandler) CompleteInvestment(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.CompleteInvestmentRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}

	inv, err := h.commands.CompleteInvestment(c.Request.Context(), appledger.CompleteInvestmentCommand{
		ActorID:      middleware.ActorID(c),
		InvestmentID: id,
		ActualReturn: req.ActualReturn,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, inv)
}

// UpdateInvestmentDetails handles PATCH /investments/:id
func (h *LedgerHandler) UpdateInvestmentDetails(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateInvestmentDetailsRequest
	if !h.bindJSON(c, &req) {
		return
	}

	inv, err := h.commands.UpdateInvestmentDetails(c.Request.Context(), appledger.UpdateInvestmentDetailsCommand{
		ActorID:         middleware.ActorID(c),
		InvestmentID:    id,
		Notes:           req.Notes,
		ActualReturn:    req.ActualReturn,
		PaymentMethod:   req.PaymentMethod,
		ReferenceNumber: req.ReferenceNumber,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, inv)
}

package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	appledger "github.com/invest/ledger/internal/application/ledger"
	"github.com/invest/ledger/internal/interfaces/http/dto"
	"github.com/invest/ledger/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// GetPlanSummary handles GET /plans/:id
func (h *LedgerHandler) GetPlanSummary(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	plan, err := h.queries.GetPlanSummary(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, plan)
}

// ApplyPayment handles POST /plans/:id/payments. Replaying a reference
// returns the current plan with 200.
func (h *LedgerHandler) ApplyPayment(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.ApplyPaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	plan, err := h.commands.ApplyPayment(c.Request.Context(), appledger.ApplyPaymentCommand{
		ActorID:         middleware.ActorID(c),
		PlanID:          id,
		Amount:          req.Amount,
		ReceivedDate:    parseDate(req.ReceivedDate),
		Method:          req.Method,
		Reference:       req.Reference,
		GatewayResponse: req.GatewayResponse,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, plan)
}

// ListReceipts handles GET /plans/:id/receipts
func (h *LedgerHandler) ListReceipts(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	receipts, err := h.queries.ListReceipts(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	out := make([]dto.ReceiptResponse, len(receipts))
	for i := range receipts {
		out[i] = dto.NewReceiptResponse(receipts[i])
	}
	h.Success(c, out)
}

// SweepPlan handles POST /plans/:id/sweep
func (h *LedgerHandler) SweepPlan(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.SweepPlanRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}

	plan, err := h.commands.SweepOverdue(c.Request.Context(), appledger.SweepOverdueCommand{
		ActorID: middleware.ActorID(c),
		PlanID:  id,
		AsOf:    parseDate(req.AsOf),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, plan)
}

// WaiveInstallment handles POST /plans/:id/installments/:number/waive
func (h *LedgerHandler) WaiveInstallment(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	number, err := strconv.Atoi(c.Param("number"))
	if err != nil || number < 1 {
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewValidationErrorResponse(
			"Invalid path parameter", requestID(c),
			[]dto.ValidationDetail{{Field: "number", Message: "Must be a positive integer"}},
		))
		return
	}
	var req dto.WaiveInstallmentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	plan, err := h.commands.WaiveInstallment(c.Request.Context(), appledger.WaiveInstallmentCommand{
		ActorID:           middleware.ActorID(c),
		PlanID:            id,
		InstallmentNumber: number,
		Reason:            req.Reason,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, plan)
}

// UpdatePlanTerms handles PATCH /plans/:id/terms
func (h *LedgerHandler) UpdatePlanTerms(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdatePlanTermsRequest
	if !h.bindJSON(c, &req) {
		return
	}

	plan, err := h.commands.UpdatePlanTerms(c.Request.Context(), appledger.UpdatePlanTermsCommand{
		ActorID:         middleware.ActorID(c),
		PlanID:          id,
		LateFeeRate:     req.LateFeeRate,
		GracePeriodDays: req.GracePeriodDays,
		InterestRate:    req.InterestRate,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, plan)
}

// ExportStatement handles POST /plans/:id/statement
func (h *LedgerHandler) ExportStatement(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	statement, err := h.statements.ExportPlanStatement(c.Request.Context(), middleware.ActorID(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, statement)
}

// SweepAll handles POST /sweeps, a manual run of the periodic sweep
func (h *LedgerHandler) SweepAll(c *gin.Context) {
	var req dto.SweepPlanRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}
	asOf := parseDate(req.AsOf)
	if asOf.IsZero() {
		asOf = h.now()
	}

	stats, err := h.sweeps.SweepAllOverdue(c.Request.Context(), asOf)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if stats.Failures > 0 {
		h.logger.Warn("Manual sweep finished with failures",
			zap.Int("failures", stats.Failures),
			zap.Int("plans_scanned", stats.PlansScanned))
	}
	h.Success(c, stats)
}

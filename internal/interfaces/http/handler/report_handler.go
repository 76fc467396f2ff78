package handler

import (
	"github.com/gin-gonic/gin"
	appledger "github.com/invest/ledger/internal/application/ledger"
	"github.com/invest/ledger/internal/domain/ledger"
	"github.com/invest/ledger/internal/interfaces/http/dto"
)

// ListInstallments handles GET /installments, the payment management listing
func (h *LedgerHandler) ListInstallments(c *gin.Context) {
	var q dto.ListInstallmentsQuery
	if !h.bindQuery(c, &q) {
		return
	}
	q.Normalize()

	items, total, err := h.queries.ListInstallments(c.Request.Context(), appledger.InstallmentListFilter{
		Status:      q.Status,
		OverdueOnly: q.OverdueOnly,
		UserID:      optionalUUID(q.UserID),
		Page:        q.Page,
		PageSize:    q.PageSize,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, items, total, q.Page, q.PageSize)
}

// SumPlans handles GET /reports/plans
func (h *LedgerHandler) SumPlans(c *gin.Context) {
	var q dto.SumPlansQuery
	if !h.bindQuery(c, &q) {
		return
	}

	filter := ledger.PlanSumFilter{}
	filter.From, filter.To = dateRange(q.DateRangeQuery)
	if q.Status != "" {
		status := ledger.PlanStatus(q.Status)
		filter.Status = &status
	}

	totals, err := h.queries.SumPlans(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, totals)
}

// FinancialOverview handles GET /reports/overview
func (h *LedgerHandler) FinancialOverview(c *gin.Context) {
	var q dto.DateRangeQuery
	if !h.bindQuery(c, &q) {
		return
	}

	from, to := dateRange(q)
	overview, err := h.queries.FinancialOverview(c.Request.Context(), from, to)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, overview)
}

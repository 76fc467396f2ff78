package router

import (
	"github.com/gin-gonic/gin"
	"github.com/invest/ledger/internal/domain/ledger"
	"github.com/invest/ledger/internal/interfaces/http/handler"
	"github.com/invest/ledger/internal/interfaces/http/middleware"
)

// AdminRole is the claim required by administrative ledger routes
const AdminRole = "ledger_admin"

// LedgerRoutes declares /ledger. authn runs first on every route and is
// followed by perRequest (span enrichment, rate limiting).
func LedgerRoutes(h *handler.LedgerHandler, authn gin.HandlerFunc, perRequest ...gin.HandlerFunc) *DomainGroup {
	admin := middleware.RequireRole(AdminRole)

	g := NewDomainGroup("ledger", "/ledger").Use(authn).Use(perRequest...)

	g.Group("projects", "/projects").
		POST("", admin, h.RegisterProject).
		GET("/:id", h.GetProject).
		GET("/:id/funding", h.GetProjectFunding).
		POST("/:id/status", admin, h.ChangeProjectStatus).
		GET("/:id/audit", h.AuditTrail(ledger.AggregateTypeProject))

	g.Group("investments", "/investments").
		POST("", h.CreateInvestment).
		GET("", h.ListInvestments).
		GET("/:id", h.GetInvestment).
		PATCH("/:id", h.UpdateInvestmentDetails).
		POST("/:id/confirm", h.ConfirmInvestment).
		POST("/:id/cancel", h.CancelInvestment).
		POST("/:id/complete", h.CompleteInvestment).
		GET("/:id/audit", h.AuditTrail(ledger.AggregateTypeInvestment))

	g.Group("plans", "/plans").
		GET("/:id", h.GetPlanSummary).
		POST("/:id/payments", h.ApplyPayment).
		GET("/:id/receipts", h.ListReceipts).
		POST("/:id/sweep", admin, h.SweepPlan).
		POST("/:id/installments/:number/waive", admin, h.WaiveInstallment).
		PATCH("/:id/terms", admin, h.UpdatePlanTerms).
		POST("/:id/statement", h.ExportStatement).
		GET("/:id/audit", h.AuditTrail(ledger.AggregateTypePaymentPlan))

	g.GET("/installments", h.ListInstallments).
		GET("/reports/plans", h.SumPlans).
		GET("/reports/overview", h.FinancialOverview).
		POST("/sweeps", admin, h.SweepAll)

	return g
}

// SystemRoutes declares /system
func SystemRoutes(h *handler.SystemHandler) *DomainGroup {
	return NewDomainGroup("system", "/system").
		GET("/info", h.GetSystemInfo)
}

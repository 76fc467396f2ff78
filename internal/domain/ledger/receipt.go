package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/invest/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PaymentReceipt records one accepted payment event. Its Reference is unique
// across the ledger, which is what makes ApplyPayment exactly-once.
type PaymentReceipt struct {
	ID              uuid.UUID
	PlanID          uuid.UUID
	InvestmentID    uuid.UUID
	Reference       string
	Amount          decimal.Decimal
	AppliedAmount   decimal.Decimal
	UnappliedAmount decimal.Decimal
	Method          string
	ReceivedDate    time.Time
	Installments    []int
	GatewayResponse map[string]any
	ProcessedBy     string
	CreatedAt       time.Time
}

// NewPaymentReceipt builds the receipt for an applied payment
func NewPaymentReceipt(plan *PaymentPlan, in PaymentInput, app *PaymentApplication, gateway map[string]any) (*PaymentReceipt, error) {
	if plan == nil || app == nil {
		return nil, shared.NewValidationError("Receipt requires an applied payment")
	}
	ref := strings.TrimSpace(in.Reference)
	if ref == "" {
		return nil, shared.NewValidationError("Payment reference is required")
	}
	return &PaymentReceipt{
		ID:              uuid.New(),
		PlanID:          plan.ID,
		InvestmentID:    plan.InvestmentID,
		Reference:       ref,
		Amount:          in.Amount,
		AppliedAmount:   app.AppliedAmount,
		UnappliedAmount: app.UnappliedAmount,
		Method:          in.Method,
		ReceivedDate:    DateOf(in.ReceivedDate),
		Installments:    app.Touched,
		GatewayResponse: gateway,
		ProcessedBy:     in.ActorID,
		CreatedAt:       time.Now(),
	}, nil
}

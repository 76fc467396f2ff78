// Package ledger holds the application services of the investment ledger:
// command handling, read projections, the overdue sweep and statement export.
package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/invest/ledger/internal/domain/ledger"
	"github.com/invest/ledger/internal/domain/shared"
	"github.com/invest/ledger/internal/domain/shared/valueobject"
	"github.com/invest/ledger/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// paymentKeyPrefix namespaces payment references in the idempotency store
const paymentKeyPrefix = "ledger:payment:"

// errReplay aborts a unit of work whose payment reference turned out to be
// taken already
var errReplay = errors.New("payment reference already applied")

// ServiceOptions holds optional collaborators of LedgerService
type ServiceOptions struct {
	Retry          RetryPolicy
	Idempotency    shared.IdempotencyStore
	IdempotencyTTL time.Duration
	Publisher      shared.EventPublisher
	Conflicts      ConflictObserver
	Replays        ReplayObserver
	Clock          func() time.Time
	// Currency tags every amount in responses. Empty means DefaultCurrency.
	Currency valueobject.Currency
	// InstallmentDefaults fills late fee and grace terms a request leaves
	// out. Nil keeps the domain defaults.
	InstallmentDefaults *InstallmentDefaults
}

// InstallmentDefaults are the deployment-wide plan terms
type InstallmentDefaults struct {
	LateFeeRate     decimal.Decimal
	GracePeriodDays int
}

// ReplayObserver is notified when a payment reference is seen again
type ReplayObserver interface {
	RecordPaymentReplay(ctx context.Context)
}

// LedgerService handles all state changes of the ledger. Every mutation runs
// in a single unit of work, is retried on optimistic-lock conflicts and is
// written to the audit log with its actor.
type LedgerService struct {
	txScope        TransactionScope
	retry          RetryPolicy
	idempotency    shared.IdempotencyStore
	idempotencyTTL time.Duration
	publisher      shared.EventPublisher
	conflicts      ConflictObserver
	replays        ReplayObserver
	defaults       *InstallmentDefaults
	currency       valueobject.Currency
	now            func() time.Time
	logger         *zap.Logger
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(txScope TransactionScope, opts ServiceOptions, logger *zap.Logger) *LedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Retry.MaxRetries < 0 {
		opts.Retry.MaxRetries = 0
	}
	if opts.IdempotencyTTL <= 0 {
		opts.IdempotencyTTL = shared.DefaultIdempotencyConfig().TTL
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Currency == "" {
		opts.Currency = valueobject.DefaultCurrency
	}
	return &LedgerService{
		txScope:        txScope,
		retry:          opts.Retry,
		idempotency:    opts.Idempotency,
		idempotencyTTL: opts.IdempotencyTTL,
		publisher:      opts.Publisher,
		conflicts:      opts.Conflicts,
		replays:        opts.Replays,
		defaults:       opts.InstallmentDefaults,
		currency:       opts.Currency,
		now:            opts.Clock,
		logger:         logger,
	}
}

func (s *LedgerService) applyInstallmentDefaults(spec *ledger.InstallmentSpec) {
	if s.defaults == nil {
		return
	}
	if spec.LateFeeRate == nil {
		rate := s.defaults.LateFeeRate
		spec.LateFeeRate = &rate
	}
	if spec.GracePeriodDays == nil {
		days := s.defaults.GracePeriodDays
		spec.GracePeriodDays = &days
	}
}

func requireActor(actorID string) error {
	if strings.TrimSpace(actorID) == "" {
		return shared.NewValidationError("Actor ID is required")
	}
	return nil
}

// publishDomainEvents publishes and clears pending events once the unit of work committed
func (s *LedgerService) publishDomainEvents(ctx context.Context, aggregates ...shared.AggregateRoot) {
	for _, agg := range aggregates {
		if agg == nil {
			continue
		}
		events := agg.GetDomainEvents()
		if len(events) == 0 {
			continue
		}
		if s.publisher != nil {
			if err := s.publisher.Publish(ctx, events...); err != nil {
				s.logger.Warn("Failed to publish domain events",
					zap.String("aggregate_id", agg.GetID().String()),
					zap.Error(err),
				)
			}
		}
		agg.ClearDomainEvents()
	}
}

func (s *LedgerService) recordReplay(ctx context.Context) {
	if s.replays != nil {
		s.replays.RecordPaymentReplay(ctx)
	}
}

func planAggregate(p *ledger.PaymentPlan) shared.AggregateRoot {
	if p == nil {
		return nil
	}
	return p
}

func investmentAggregate(inv *ledger.Investment) shared.AggregateRoot {
	if inv == nil {
		return nil
	}
	return inv
}

// ============================================
// Projects
// ============================================

// RegisterProject registers the funding terms of a project
func (s *LedgerService) RegisterProject(ctx context.Context, cmd RegisterProjectCommand) (*ProjectResponse, error) {
	if err := requireActor(cmd.ActorID); err != nil {
		return nil, err
	}
	project, err := ledger.NewProject(cmd.Name, ledger.ProjectTerms{
		TargetAmount:       cmd.TargetAmount,
		MinInvestment:      cmd.MinInvestment,
		MaxInvestment:      cmd.MaxInvestment,
		ExpectedReturnRate: cmd.ExpectedReturnRate,
		DurationMonths:     cmd.DurationMonths,
	})
	if err != nil {
		return nil, err
	}
	if cmd.Status != "" && cmd.Status != ledger.ProjectStatusDraft {
		if err := project.ChangeStatus(cmd.Status); err != nil {
			return nil, err
		}
	}

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := repos.ProjectRepo().Save(ctx, project); err != nil {
			return err
		}
		return repos.AuditRepo().Append(ctx, ledger.NewAuditEntry(cmd.ActorID, ledger.AuditProjectRegistered,
			ledger.AggregateTypeProject, project.ID, map[string]any{
				"name":          project.Name,
				"target_amount": project.TargetAmount.String(),
				"status":        string(project.Status),
			}))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Project registered",
		zap.String("project_id", project.ID.String()),
		zap.String("actor_id", cmd.ActorID),
	)
	resp := ToProjectResponse(project, s.currency)
	return &resp, nil
}

// ChangeProjectStatus moves a project to a new status
func (s *LedgerService) ChangeProjectStatus(ctx context.Context, cmd ChangeProjectStatusCommand) (*ProjectResponse, error) {
	if err := requireActor(cmd.ActorID); err != nil {
		return nil, err
	}

	var project *ledger.Project
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		project, err = repos.ProjectRepo().FindByID(ctx, cmd.ProjectID)
		if err != nil {
			return err
		}
		from := project.Status
		if err := project.ChangeStatus(cmd.Status); err != nil {
			return err
		}
		if err := repos.ProjectRepo().Save(ctx, project); err != nil {
			return err
		}
		return repos.AuditRepo().Append(ctx, ledger.NewAuditEntry(cmd.ActorID, ledger.AuditProjectStatusChanged,
			ledger.AggregateTypeProject, project.ID, map[string]any{
				"from": string(from),
				"to":   string(project.Status),
			}))
	})
	if err != nil {
		return nil, err
	}
	resp := ToProjectResponse(project, s.currency)
	return &resp, nil
}

// ============================================
// Investment lifecycle
// ============================================

// CreateInvestment validates a pledge against its project and records it as pending
func (s *LedgerService) CreateInvestment(ctx context.Context, cmd CreateInvestmentCommand) (*InvestmentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "create_investment")
	defer span.End()
	telemetry.SetAttributes(span,
		"project_id", cmd.ProjectID.String(),
		"payment_type", string(cmd.PaymentType),
	)

	if err := requireActor(cmd.ActorID); err != nil {
		return nil, err
	}

	var spec *ledger.InstallmentSpec
	if cmd.Installments != nil {
		spec = &ledger.InstallmentSpec{
			Count:           cmd.Installments.Count,
			Frequency:       cmd.Installments.Frequency,
			StartDate:       cmd.Installments.StartDate,
			InterestRate:    cmd.Installments.InterestRate,
			LateFeeRate:     cmd.Installments.LateFeeRate,
			GracePeriodDays: cmd.Installments.GracePeriodDays,
		}
		s.applyInstallmentDefaults(spec)
	}

	var inv *ledger.Investment
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		project, err := repos.ProjectRepo().FindByID(ctx, cmd.ProjectID)
		if err != nil {
			return err
		}
		inv, err = ledger.NewInvestment(project, cmd.UserID, cmd.Amount, cmd.PaymentType, spec, ledger.InvestmentDetails{
			PaymentMethod:    cmd.PaymentMethod,
			ReferenceNumber:  cmd.ReferenceNumber,
			Notes:            cmd.Notes,
			RiskAcknowledged: cmd.RiskAcknowledged,
		}, cmd.ActorID)
		if err != nil {
			return err
		}
		if err := repos.InvestmentRepo().Create(ctx, inv); err != nil {
			return err
		}
		return repos.AuditRepo().Append(ctx, ledger.NewAuditEntry(cmd.ActorID, ledger.AuditInvestmentCreated,
			ledger.AggregateTypeInvestment, inv.ID, map[string]any{
				"project_id":   project.ID.String(),
				"user_id":      inv.UserID.String(),
				"amount":       inv.Amount.String(),
				"payment_type": string(inv.PaymentType),
			}))
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publishDomainEvents(ctx, inv)
	s.logger.Info("Investment created",
		zap.String("investment_id", inv.ID.String()),
		zap.String("project_id", inv.ProjectID.String()),
		zap.String("amount", inv.Amount.String()),
		zap.String("actor_id", cmd.ActorID),
	)
	resp := ToInvestmentResponse(inv, nil, s.currency)
	return &resp, nil
}

// ConfirmInvestment confirms a pending investment: the project total is
// raised and installment investments get their plan. Confirming an already
// confirmed investment returns its current state unchanged.
func (s *LedgerService) ConfirmInvestment(ctx context.Context, cmd ConfirmInvestmentCommand) (*InvestmentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "confirm_investment")
	defer span.End()
	telemetry.SetAttribute(span, "investment_id", cmd.InvestmentID.String())

	if err := requireActor(cmd.ActorID); err != nil {
		return nil, err
	}

	var (
		inv    *ledger.Investment
		plan   *ledger.PaymentPlan
		replay bool
	)
	err := withConflictRetry(ctx, s.retry, s.logger, s.conflicts, "confirm_investment", func() error {
		inv, plan, replay = nil, nil, false
		return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			var err error
			inv, err = repos.InvestmentRepo().FindByID(ctx, cmd.InvestmentID)
			if err != nil {
				return err
			}
			project, err := repos.ProjectRepo().FindByID(ctx, inv.ProjectID)
			if err != nil {
				return err
			}

			result, err := inv.Confirm(project, cmd.ActorID, s.now())
			if err != nil {
				return err
			}
			if result.AlreadyConfirmed {
				replay = true
				if inv.RequiresPlan() {
					plan, err = findPlanIfAny(ctx, repos.PlanRepo(), inv.ID)
				}
				return err
			}

			if err := repos.InvestmentRepo().SaveWithLock(ctx, inv); err != nil {
				return err
			}
			if result.Plan != nil {
				plan = result.Plan
				if err := repos.PlanRepo().Create(ctx, plan); err != nil {
					return err
				}
			}

			details := map[string]any{
				"funding_delta": result.FundingDelta.String(),
				"status":        string(inv.Status),
			}
			if plan != nil {
				details["plan_id"] = plan.ID.String()
				details["installments"] = plan.InstallmentCount
			}
			if err := repos.AuditRepo().Append(ctx, ledger.NewAuditEntry(cmd.ActorID, ledger.AuditInvestmentConfirmed,
				ledger.AggregateTypeInvestment, inv.ID, details)); err != nil {
				return err
			}

			// Last statement: the project row lock is held only until commit
			return repos.ProjectRepo().AdjustRaised(ctx, project.ID, result.FundingDelta)
		})
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if replay {
		s.logger.Debug("Investment already confirmed",
			zap.String("investment_id", inv.ID.String()),
		)
	} else {
		s.publishDomainEvents(ctx, investmentAggregate(inv), planAggregate(plan))
		s.logger.Info("Investment confirmed",
			zap.String("investment_id", inv.ID.String()),
			zap.String("status", string(inv.Status)),
			zap.String("actor_id", cmd.ActorID),
		)
	}
	resp := ToInvestmentResponse(inv, plan, s.currency)
	return &resp, nil
}

// CancelInvestment cancels an investment. Funding applied at confirmation is
// reversed and unpaid installments are waived.
func (s *LedgerService) CancelInvestment(ctx context.Context, cmd CancelInvestmentCommand) (*InvestmentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "cancel_investment")
	defer span.End()
	telemetry.SetAttribute(span, "investment_id", cmd.InvestmentID.String())

	if err := requireActor(cmd.ActorID); err != nil {
		return nil, err
	}

	var (
		inv  *ledger.Investment
		plan *ledger.PaymentPlan
	)
	err := withConflictRetry(ctx, s.retry, s.logger, s.conflicts, "cancel_investment", func() error {
		inv, plan = nil, nil
		return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			var err error
			inv, err = repos.InvestmentRepo().FindByID(ctx, cmd.InvestmentID)
			if err != nil {
				return err
			}
			if inv.RequiresPlan() {
				if plan, err = findPlanIfAny(ctx, repos.PlanRepo(), inv.ID); err != nil {
					return err
				}
			}

			result, err := inv.Cancel(plan, cmd.Reason, cmd.ActorID, s.now())
			if err != nil {
				return err
			}
			if err := repos.InvestmentRepo().SaveWithLock(ctx, inv); err != nil {
				return err
			}
			if plan != nil {
				if err := repos.PlanRepo().SaveWithLock(ctx, plan); err != nil {
					return err
				}
			}
			if err := repos.AuditRepo().Append(ctx, ledger.NewAuditEntry(cmd.ActorID, ledger.AuditInvestmentCancelled,
				ledger.AggregateTypeInvestment, inv.ID, map[string]any{
					"reason":        cmd.Reason,
					"funding_delta": result.FundingDelta.String(),
					"waived":        result.WaivedInstallments,
				})); err != nil {
				return err
			}
			if result.FundingDelta.IsZero() {
				return nil
			}
			return repos.ProjectRepo().AdjustRaised(ctx, inv.ProjectID, result.FundingDelta)
		})
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publishDomainEvents(ctx, investmentAggregate(inv), planAggregate(plan))
	s.logger.Info("Investment cancelled",
		zap.String("investment_id", inv.ID.String()),
		zap.String("reason", cmd.Reason),
		zap.String("actor_id", cmd.ActorID),
	)
	resp := ToInvestmentResponse(inv, plan, s.currency)
	return &resp, nil
}

// CompleteInvestment settles a confirmed lump-sum investment
func (s *LedgerService) CompleteInvestment(ctx context.Context, cmd CompleteInvestmentCommand) (*InvestmentResponse, error) {
	if err := requireActor(cmd.ActorID); err != nil {
		return nil, err
	}

	var inv *ledger.Investment
	err := withConflictRetry(ctx, s.retry, s.logger, s.conflicts, "complete_investment", func() error {
		return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			var err error
			inv, err = repos.InvestmentRepo().FindByID(ctx, cmd.InvestmentID)
			if err != nil {
				return err
			}
			if err := inv.Complete(cmd.ActualReturn, cmd.ActorID); err != nil {
				return err
			}
			if err := repos.InvestmentRepo().SaveWithLock(ctx, inv); err != nil {
				return err
			}
			return repos.AuditRepo().Append(ctx, ledger.NewAuditEntry(cmd.ActorID, ledger.AuditInvestmentCompleted,
				ledger.AggregateTypeInvestment, inv.ID, map[string]any{
					"actual_return": inv.ActualReturn.String(),
				}))
		})
	})
	if err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, inv)
	resp := ToInvestmentResponse(inv, nil, s.currency)
	return &resp, nil
}

// UpdateInvestmentDetails edits notes, actual return, payment method or
// reference number. Lifecycle fields cannot be reached through this path.
func (s *LedgerService) UpdateInvestmentDetails(ctx context.Context, cmd UpdateInvestmentDetailsCommand) (*InvestmentResponse, error) {
	if err := requireActor(cmd.ActorID); err != nil {
		return nil, err
	}
	update := ledger.InvestmentDetailsUpdate{
		Notes:           cmd.Notes,
		ActualReturn:    cmd.ActualReturn,
		PaymentMethod:   cmd.PaymentMethod,
		ReferenceNumber: cmd.ReferenceNumber,
	}

	var inv *ledger.Investment
	err := withConflictRetry(ctx, s.retry, s.logger, s.conflicts, "update_investment", func() error {
		return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			var err error
			inv, err = repos.InvestmentRepo().FindByID(ctx, cmd.InvestmentID)
			if err != nil {
				return err
			}
			if err := inv.UpdateDetails(update); err != nil {
				return err
			}
			if err := repos.InvestmentRepo().SaveWithLock(ctx, inv); err != nil {
				return err
			}
			return repos.AuditRepo().Append(ctx, ledger.NewAuditEntry(cmd.ActorID, ledger.AuditInvestmentUpdated,
				ledger.AggregateTypeInvestment, inv.ID, detailsUpdateFields(update)))
		})
	})
	if err != nil {
		return nil, err
	}
	resp := ToInvestmentResponse(inv, nil, s.currency)
	return &resp, nil
}

func detailsUpdateFields(u ledger.InvestmentDetailsUpdate) map[string]any {
	fields := map[string]any{}
	if u.Notes != nil {
		fields["notes"] = *u.Notes
	}
	if u.ActualReturn != nil {
		fields["actual_return"] = u.ActualReturn.String()
	}
	if u.PaymentMethod != nil {
		fields["payment_method"] = *u.PaymentMethod
	}
	if u.ReferenceNumber != nil {
		fields["reference_number"] = *u.ReferenceNumber
	}
	return fields
}

// ============================================
// Payment plans
// ============================================

// ApplyPayment applies an incoming payment to a plan, oldest installment
// first. Each reference is applied at most once; a replay returns the current
// plan without changing it.
func (s *LedgerService) ApplyPayment(ctx context.Context, cmd ApplyPaymentCommand) (*PaymentPlanResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "apply_payment")
	defer span.End()
	telemetry.SetAttributes(span,
		"plan_id", cmd.PlanID.String(),
		"reference", cmd.Reference,
	)

	if err := requireActor(cmd.ActorID); err != nil {
		return nil, err
	}
	reference := strings.TrimSpace(cmd.Reference)
	if reference == "" {
		return nil, shared.NewValidationError("Payment reference is required")
	}
	if !cmd.Amount.IsPositive() {
		return nil, shared.NewValidationError("Payment amount must be positive")
	}
	receivedDate := cmd.ReceivedDate
	if receivedDate.IsZero() {
		receivedDate = s.now()
	}
	input := ledger.PaymentInput{
		Amount:       cmd.Amount,
		ReceivedDate: receivedDate,
		Method:       cmd.Method,
		Reference:    reference,
		ActorID:      cmd.ActorID,
	}

	if s.seenReference(ctx, reference) {
		s.recordReplay(ctx)
		return s.currentPlan(ctx, cmd.PlanID)
	}

	var (
		plan *ledger.PaymentPlan
		inv  *ledger.Investment
		app  *ledger.PaymentApplication
	)
	err := withConflictRetry(ctx, s.retry, s.logger, s.conflicts, "apply_payment", func() error {
		plan, inv, app = nil, nil, nil
		return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			exists, err := repos.ReceiptRepo().ExistsByReference(ctx, reference)
			if err != nil {
				return err
			}
			if exists {
				return errReplay
			}

			plan, err = repos.PlanRepo().FindByID(ctx, cmd.PlanID)
			if err != nil {
				return err
			}
			app, err = plan.ApplyPayment(input)
			if err != nil {
				return err
			}
			if err := repos.PlanRepo().SaveWithLock(ctx, plan); err != nil {
				return err
			}

			receipt, err := ledger.NewPaymentReceipt(plan, input, app, cmd.GatewayResponse)
			if err != nil {
				return err
			}
			if err := repos.ReceiptRepo().Create(ctx, receipt); err != nil {
				if errors.Is(err, shared.ErrAlreadyExists) {
					return errReplay
				}
				return err
			}

			if app.Completed {
				inv, err = repos.InvestmentRepo().FindByID(ctx, plan.InvestmentID)
				if err != nil {
					return err
				}
				if err := inv.MarkCompleted(cmd.ActorID); err != nil {
					return err
				}
				if err := repos.InvestmentRepo().SaveWithLock(ctx, inv); err != nil {
					return err
				}
			}

			return repos.AuditRepo().Append(ctx, ledger.NewAuditEntry(cmd.ActorID, ledger.AuditPaymentApplied,
				ledger.AggregateTypePaymentPlan, plan.ID, map[string]any{
					"reference":        reference,
					"amount":           cmd.Amount.String(),
					"applied_amount":   app.AppliedAmount.String(),
					"unapplied_amount": app.UnappliedAmount.String(),
					"installments":     app.Touched,
					"completed":        app.Completed,
				}))
		})
	})
	if errors.Is(err, errReplay) {
		s.logger.Info("Payment reference already applied",
			zap.String("plan_id", cmd.PlanID.String()),
			zap.String("reference", reference),
		)
		s.rememberReference(ctx, reference)
		s.recordReplay(ctx)
		return s.currentPlan(ctx, cmd.PlanID)
	}
	if err != nil {
		if errors.Is(err, shared.ErrNoOutstanding) {
			s.logger.Warn("Payment received for plan without outstanding installments",
				zap.String("plan_id", cmd.PlanID.String()),
				zap.String("reference", reference),
				zap.String("amount", cmd.Amount.String()),
			)
		}
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.rememberReference(ctx, reference)
	s.publishDomainEvents(ctx, planAggregate(plan), investmentAggregate(inv))
	if app.UnappliedAmount.IsPositive() {
		s.logger.Warn("Payment exceeds plan balance, excess kept as credit",
			zap.String("plan_id", plan.ID.String()),
			zap.String("reference", reference),
			zap.String("unapplied_amount", app.UnappliedAmount.String()),
		)
	}
	s.logger.Info("Payment applied",
		zap.String("plan_id", plan.ID.String()),
		zap.String("reference", reference),
		zap.String("applied_amount", app.AppliedAmount.String()),
		zap.String("remaining_balance", plan.RemainingBalance.String()),
		zap.String("actor_id", cmd.ActorID),
	)
	resp := ToPaymentPlanResponse(plan, s.currency)
	return &resp, nil
}

// SweepOverdue brings the overdue state of one plan up to date as of cmd.AsOf
// (today when zero). Running it repeatedly with the same date changes nothing.
func (s *LedgerService) SweepOverdue(ctx context.Context, cmd SweepOverdueCommand) (*PaymentPlanResponse, error) {
	if err := requireActor(cmd.ActorID); err != nil {
		return nil, err
	}
	plan, _, err := s.sweepPlan(ctx, cmd.PlanID, cmd.AsOf, cmd.ActorID)
	if err != nil {
		return nil, err
	}
	resp := ToPaymentPlanResponse(plan, s.currency)
	return &resp, nil
}

// sweepPlan runs one plan sweep in its own unit of work
func (s *LedgerService) sweepPlan(ctx context.Context, planID uuid.UUID, asOf time.Time, actorID string) (*ledger.PaymentPlan, *ledger.SweepResult, error) {
	if asOf.IsZero() {
		asOf = s.now()
	}

	var (
		plan   *ledger.PaymentPlan
		result *ledger.SweepResult
	)
	err := withConflictRetry(ctx, s.retry, s.logger, s.conflicts, "sweep_overdue", func() error {
		return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			var err error
			plan, err = repos.PlanRepo().FindByID(ctx, planID)
			if err != nil {
				return err
			}
			result = plan.Sweep(asOf, actorID)
			if !result.Changed {
				return nil
			}
			if err := repos.PlanRepo().SaveWithLock(ctx, plan); err != nil {
				return err
			}
			if len(result.NewlyOverdue) == 0 && len(result.LateFeeAccrued) == 0 {
				return nil
			}
			return repos.AuditRepo().Append(ctx, ledger.NewAuditEntry(actorID, ledger.AuditOverdueSwept,
				ledger.AggregateTypePaymentPlan, plan.ID, map[string]any{
					"as_of":            ledger.DateOf(asOf).Format(time.DateOnly),
					"newly_overdue":    result.NewlyOverdue,
					"late_fee_accrued": result.LateFeeAccrued,
					"overdue_amount":   plan.OverdueAmount.String(),
				}))
		})
	})
	if err != nil {
		return nil, nil, err
	}
	s.publishDomainEvents(ctx, plan)
	return plan, result, nil
}

// WaiveInstallment forgives one outstanding installment
func (s *LedgerService) WaiveInstallment(ctx context.Context, cmd WaiveInstallmentCommand) (*PaymentPlanResponse, error) {
	if err := requireActor(cmd.ActorID); err != nil {
		return nil, err
	}

	var (
		plan *ledger.PaymentPlan
		inv  *ledger.Investment
	)
	err := withConflictRetry(ctx, s.retry, s.logger, s.conflicts, "waive_installment", func() error {
		inv = nil
		return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			var err error
			plan, err = repos.PlanRepo().FindByID(ctx, cmd.PlanID)
			if err != nil {
				return err
			}
			if err := plan.Waive(cmd.InstallmentNumber, cmd.Reason, cmd.ActorID); err != nil {
				return err
			}
			if err := repos.PlanRepo().SaveWithLock(ctx, plan); err != nil {
				return err
			}
			if plan.Status == ledger.PlanStatusCompleted {
				inv, err = repos.InvestmentRepo().FindByID(ctx, plan.InvestmentID)
				if err != nil {
					return err
				}
				if err := inv.MarkCompleted(cmd.ActorID); err != nil {
					return err
				}
				if err := repos.InvestmentRepo().SaveWithLock(ctx, inv); err != nil {
					return err
				}
			}
			return repos.AuditRepo().Append(ctx, ledger.NewAuditEntry(cmd.ActorID, ledger.AuditInstallmentWaived,
				ledger.AggregateTypePaymentPlan, plan.ID, map[string]any{
					"installment": cmd.InstallmentNumber,
					"reason":      cmd.Reason,
				}))
		})
	})
	if err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, planAggregate(plan), investmentAggregate(inv))
	s.logger.Info("Installment waived",
		zap.String("plan_id", plan.ID.String()),
		zap.Int("installment", cmd.InstallmentNumber),
		zap.String("actor_id", cmd.ActorID),
	)
	resp := ToPaymentPlanResponse(plan, s.currency)
	return &resp, nil
}

// UpdatePlanTerms changes the late fee rate, grace period or interest rate of
// a plan. Fees already accrued are kept.
func (s *LedgerService) UpdatePlanTerms(ctx context.Context, cmd UpdatePlanTermsCommand) (*PaymentPlanResponse, error) {
	if err := requireActor(cmd.ActorID); err != nil {
		return nil, err
	}
	update := ledger.PlanTermsUpdate{
		LateFeeRate:     cmd.LateFeeRate,
		GracePeriodDays: cmd.GracePeriodDays,
		InterestRate:    cmd.InterestRate,
	}

	var plan *ledger.PaymentPlan
	err := withConflictRetry(ctx, s.retry, s.logger, s.conflicts, "update_plan_terms", func() error {
		return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			var err error
			plan, err = repos.PlanRepo().FindByID(ctx, cmd.PlanID)
			if err != nil {
				return err
			}
			if err := plan.UpdateTerms(update); err != nil {
				return err
			}
			if err := repos.PlanRepo().SaveWithLock(ctx, plan); err != nil {
				return err
			}
			return repos.AuditRepo().Append(ctx, ledger.NewAuditEntry(cmd.ActorID, ledger.AuditPlanTermsUpdated,
				ledger.AggregateTypePaymentPlan, plan.ID, termsUpdateFields(update)))
		})
	})
	if err != nil {
		return nil, err
	}
	resp := ToPaymentPlanResponse(plan, s.currency)
	return &resp, nil
}

func termsUpdateFields(u ledger.PlanTermsUpdate) map[string]any {
	fields := map[string]any{}
	if u.LateFeeRate != nil {
		fields["late_fee_rate"] = u.LateFeeRate.String()
	}
	if u.GracePeriodDays != nil {
		fields["grace_period_days"] = *u.GracePeriodDays
	}
	if u.InterestRate != nil {
		fields["interest_rate"] = u.InterestRate.String()
	}
	return fields
}

// ============================================
// Helpers
// ============================================

// seenReference consults the idempotency fast path. Store errors are logged
// and treated as a miss, leaving the decision to the receipt constraint.
func (s *LedgerService) seenReference(ctx context.Context, reference string) bool {
	if s.idempotency == nil {
		return false
	}
	seen, err := s.idempotency.IsProcessed(ctx, paymentKeyPrefix+reference)
	if err != nil {
		s.logger.Warn("Idempotency store lookup failed",
			zap.String("reference", reference),
			zap.Error(err),
		)
		return false
	}
	return seen
}

func (s *LedgerService) rememberReference(ctx context.Context, reference string) {
	if s.idempotency == nil {
		return
	}
	if _, err := s.idempotency.MarkProcessed(ctx, paymentKeyPrefix+reference, s.idempotencyTTL); err != nil {
		s.logger.Warn("Failed to record payment reference",
			zap.String("reference", reference),
			zap.Error(err),
		)
	}
}

func (s *LedgerService) currentPlan(ctx context.Context, planID uuid.UUID) (*PaymentPlanResponse, error) {
	var plan *ledger.PaymentPlan
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		plan, err = repos.PlanRepo().FindByID(ctx, planID)
		return err
	})
	if err != nil {
		return nil, err
	}
	resp := ToPaymentPlanResponse(plan, s.currency)
	return &resp, nil
}

func findPlanIfAny(ctx context.Context, repo ledger.PaymentPlanRepository, investmentID uuid.UUID) (*ledger.PaymentPlan, error) {
	plan, err := repo.FindByInvestmentID(ctx, investmentID)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil
	}
	return plan, err
}

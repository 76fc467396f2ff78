package ledger

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/invest/ledger/internal/domain/ledger"
	"github.com/invest/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// memStore is an in-memory stand-in for the database. Aggregates are copied
// in and out so tests observe only what was saved.
type memStore struct {
	mu          sync.Mutex
	projects    map[uuid.UUID]ledger.Project
	investments map[uuid.UUID]ledger.Investment
	plans       map[uuid.UUID]ledger.PaymentPlan
	receipts    map[string]ledger.PaymentReceipt
	audit       []ledger.AuditEntry

	// writes journals every successful write in order, e.g. "project.adjust_raised"
	writes []string

	// failSaves makes the next N investment SaveWithLock calls report a conflict
	failSaves int
}

func newMemStore() *memStore {
	return &memStore{
		projects:    map[uuid.UUID]ledger.Project{},
		investments: map[uuid.UUID]ledger.Investment{},
		plans:       map[uuid.UUID]ledger.PaymentPlan{},
		receipts:    map[string]ledger.PaymentReceipt{},
	}
}

func (m *memStore) scope() *NoOpTransactionScope {
	return NewNoOpTransactionScope(m.repositories())
}

func (m *memStore) repositories() Repositories {
	return Repositories{
		Projects:    &memProjects{m},
		Investments: &memInvestments{m},
		Plans:       &memPlans{m},
		Receipts:    &memReceipts{m},
		Audit:       &memAudit{m},
	}
}

func (m *memStore) writeLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.writes...)
}

func (m *memStore) auditActions() []ledger.AuditAction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ledger.AuditAction, 0, len(m.audit))
	for _, e := range m.audit {
		out = append(out, e.Action)
	}
	return out
}

func copyPlan(p *ledger.PaymentPlan) ledger.PaymentPlan {
	cp := *p
	cp.Installments = append([]ledger.Installment(nil), p.Installments...)
	cp.ClearDomainEvents()
	cp.ClearPendingAccruals()
	return cp
}

type memProjects struct{ m *memStore }

func (r *memProjects) FindByID(_ context.Context, id uuid.UUID) (*ledger.Project, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.projects[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &p, nil
}

func (r *memProjects) Save(_ context.Context, p *ledger.Project) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	cp := *p
	if existing, ok := r.m.projects[p.ID]; ok {
		cp.RaisedAmount = existing.RaisedAmount
	}
	cp.ClearDomainEvents()
	r.m.projects[p.ID] = cp
	return nil
}

func (r *memProjects) AdjustRaised(_ context.Context, id uuid.UUID, delta decimal.Decimal) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.projects[id]
	if !ok {
		return shared.ErrNotFound
	}
	p.ApplyRaisedDelta(delta)
	r.m.projects[id] = p
	r.m.writes = append(r.m.writes, "project.adjust_raised")
	return nil
}

type memInvestments struct{ m *memStore }

func (r *memInvestments) FindByID(_ context.Context, id uuid.UUID) (*ledger.Investment, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	inv, ok := r.m.investments[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &inv, nil
}

func (r *memInvestments) FindAll(_ context.Context, filter ledger.InvestmentFilter) ([]ledger.Investment, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []ledger.Investment
	for _, inv := range r.m.investments {
		if filter.UserID != nil && inv.UserID != *filter.UserID {
			continue
		}
		if filter.ProjectID != nil && inv.ProjectID != *filter.ProjectID {
			continue
		}
		if filter.Status != nil && inv.Status != *filter.Status {
			continue
		}
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, int64(len(out)), nil
}

func (r *memInvestments) Create(_ context.Context, inv *ledger.Investment) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.investments[inv.ID]; ok {
		return shared.ErrAlreadyExists
	}
	cp := *inv
	cp.ClearDomainEvents()
	r.m.investments[inv.ID] = cp
	return nil
}

func (r *memInvestments) SaveWithLock(_ context.Context, inv *ledger.Investment) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failSaves > 0 {
		r.m.failSaves--
		return shared.NewConcurrencyConflictError("injected conflict")
	}
	stored, ok := r.m.investments[inv.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if stored.Version != inv.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	cp := *inv
	cp.ClearDomainEvents()
	r.m.investments[inv.ID] = cp
	r.m.writes = append(r.m.writes, "investment.save")
	return nil
}

type memPlans struct{ m *memStore }

func (r *memPlans) FindByID(_ context.Context, id uuid.UUID) (*ledger.PaymentPlan, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.plans[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := copyPlan(&p)
	return &cp, nil
}

func (r *memPlans) FindByInvestmentID(_ context.Context, investmentID uuid.UUID) (*ledger.PaymentPlan, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, p := range r.m.plans {
		if p.InvestmentID == investmentID {
			cp := copyPlan(&p)
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memPlans) FindActiveIDs(_ context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var ids []uuid.UUID
	for id, p := range r.m.plans {
		if p.Status == ledger.PlanStatusActive && bytes.Compare(id[:], after[:]) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (r *memPlans) Create(_ context.Context, p *ledger.PaymentPlan) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.plans[p.ID] = copyPlan(p)
	r.m.writes = append(r.m.writes, "plan.create")
	return nil
}

func (r *memPlans) SaveWithLock(_ context.Context, p *ledger.PaymentPlan) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	stored, ok := r.m.plans[p.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if stored.Version != p.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	for _, n := range p.PendingLateFeeAccruals() {
		if inst := stored.Installment(n); inst != nil && !inst.LateFee.IsZero() {
			return shared.NewConcurrencyConflictError("late fee already accrued")
		}
	}
	r.m.plans[p.ID] = copyPlan(p)
	p.ClearPendingAccruals()
	r.m.writes = append(r.m.writes, "plan.save")
	return nil
}

type memReceipts struct{ m *memStore }

func (r *memReceipts) Create(_ context.Context, receipt *ledger.PaymentReceipt) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.receipts[receipt.Reference]; ok {
		return shared.ErrAlreadyExists
	}
	r.m.receipts[receipt.Reference] = *receipt
	return nil
}

func (r *memReceipts) ExistsByReference(_ context.Context, reference string) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	_, ok := r.m.receipts[reference]
	return ok, nil
}

func (r *memReceipts) FindByPlan(_ context.Context, planID uuid.UUID) ([]ledger.PaymentReceipt, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []ledger.PaymentReceipt
	for _, rc := range r.m.receipts {
		if rc.PlanID == planID {
			out = append(out, rc)
		}
	}
	return out, nil
}

type memAudit struct{ m *memStore }

func (r *memAudit) Append(_ context.Context, e *ledger.AuditEntry) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.audit = append(r.m.audit, *e)
	r.m.writes = append(r.m.writes, "audit.append")
	return nil
}

func (r *memAudit) FindByEntity(_ context.Context, entityType string, entityID uuid.UUID) ([]ledger.AuditEntry, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []ledger.AuditEntry
	for _, e := range r.m.audit {
		if e.EntityType == entityType && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, nil
}

// recordingPublisher collects published event types
type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range events {
		p.events = append(p.events, e.EventType())
	}
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

// mapIdempotency is a minimal IdempotencyStore
type mapIdempotency struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func (s *mapIdempotency) MarkProcessed(_ context.Context, key string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keys == nil {
		s.keys = map[string]struct{}{}
	}
	if _, ok := s.keys[key]; ok {
		return false, nil
	}
	s.keys[key] = struct{}{}
	return true, nil
}

func (s *mapIdempotency) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.keys[key]
	return ok, nil
}

func (s *mapIdempotency) Close() error { return nil }

// countingObserver counts conflict retries
type countingObserver struct {
	mu    sync.Mutex
	count int
}

func (o *countingObserver) RecordConflictRetry(context.Context, string) {
	o.mu.Lock()
	o.count++
	o.mu.Unlock()
}

// memObjectStorage keeps uploaded objects in memory
type memObjectStorage struct {
	objects map[string][]byte
}

func (s *memObjectStorage) Upload(_ context.Context, key string, data []byte, _ string) error {
	if s.objects == nil {
		s.objects = map[string][]byte{}
	}
	s.objects[key] = data
	return nil
}

func (s *memObjectStorage) GenerateDownloadURL(_ context.Context, key string, ttl time.Duration) (string, time.Time, error) {
	return "https://storage.test/" + key, time.Now().Add(ttl), nil
}

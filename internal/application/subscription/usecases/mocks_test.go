package usecases

import (
	"context"
	"sync"
	"time"

	"github.com/orris-inc/billing/internal/application/payment/paymentgateway"
	"github.com/orris-inc/billing/internal/domain/ledger"
	"github.com/orris-inc/billing/internal/domain/order"
	"github.com/orris-inc/billing/internal/domain/subscription"
	vo "github.com/orris-inc/billing/internal/domain/subscription/valueobjects"
)

// The repositories below keep copies of the aggregates so that changes a use
// case makes without calling Update are not persisted, as with a real store.

type mockSubscriptionRepository struct {
	mu     sync.Mutex
	subs   map[uint]*subscription.Subscription
	nextID uint

	UpdateCalls int

	GetByIDForUpdateFunc  func(ctx context.Context, id uint) (*subscription.Subscription, error)
	UpdateFunc            func(ctx context.Context, sub *subscription.Subscription) error
	FindDueForRenewalFunc func(ctx context.Context, now time.Time, window time.Duration, limit int) ([]uint, error)
}

func newMockSubscriptionRepository(subs ...*subscription.Subscription) *mockSubscriptionRepository {
	m := &mockSubscriptionRepository{subs: make(map[uint]*subscription.Subscription), nextID: 1000}
	for _, s := range subs {
		m.subs[s.ID()] = cloneSubscription(s)
	}
	return m
}

func (m *mockSubscriptionRepository) Create(ctx context.Context, sub *subscription.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	if err := sub.SetID(m.nextID); err != nil {
		return err
	}
	m.subs[sub.ID()] = cloneSubscription(sub)
	return nil
}

func (m *mockSubscriptionRepository) Update(ctx context.Context, sub *subscription.Subscription) error {
	if m.UpdateFunc != nil {
		if err := m.UpdateFunc(ctx, sub); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCalls++
	m.subs[sub.ID()] = cloneSubscription(sub)
	return nil
}

func (m *mockSubscriptionRepository) GetByID(ctx context.Context, id uint) (*subscription.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.subs[id]; ok {
		return cloneSubscription(s), nil
	}
	return nil, nil
}

func (m *mockSubscriptionRepository) GetBySID(ctx context.Context, sid string) (*subscription.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subs {
		if s.SID() == sid {
			return cloneSubscription(s), nil
		}
	}
	return nil, nil
}

func (m *mockSubscriptionRepository) GetByIDForUpdate(ctx context.Context, id uint) (*subscription.Subscription, error) {
	if m.GetByIDForUpdateFunc != nil {
		return m.GetByIDForUpdateFunc(ctx, id)
	}
	return m.GetByID(ctx, id)
}

func (m *mockSubscriptionRepository) FindDueForRenewal(ctx context.Context, now time.Time, window time.Duration, limit int) ([]uint, error) {
	if m.FindDueForRenewalFunc != nil {
		return m.FindDueForRenewalFunc(ctx, now, window, limit)
	}
	return m.find(limit, func(s *subscription.Subscription) bool { return s.IsDueForRenewal(now, window) }), nil
}

func (m *mockSubscriptionRepository) FindReadyForSuspension(ctx context.Context, cutoff time.Time, limit int) ([]uint, error) {
	return m.find(limit, func(s *subscription.Subscription) bool {
		return s.Status() == vo.StatusActive && s.PaymentHealth().IsFailing() && !s.ExpiresAt().After(cutoff)
	}), nil
}

func (m *mockSubscriptionRepository) FindNeedingSuspensionWarning(ctx context.Context, from, to time.Time, limit int) ([]uint, error) {
	return m.find(limit, func(s *subscription.Subscription) bool {
		h := s.PaymentHealth()
		return s.Status() == vo.StatusActive && h.IsFailing() && !h.WarningSent() &&
			s.ExpiresAt().After(from) && !s.ExpiresAt().After(to)
	}), nil
}

func (m *mockSubscriptionRepository) FindLapsed(ctx context.Context, now time.Time, limit int) ([]uint, error) {
	return m.find(limit, func(s *subscription.Subscription) bool { return s.IsLapsed(now) }), nil
}

func (m *mockSubscriptionRepository) find(limit int, match func(*subscription.Subscription) bool) []uint {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []uint
	for id, s := range m.subs {
		if match(s) {
			ids = append(ids, id)
		}
	}
	sortIDs(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids
}

// stored returns the persisted state of a subscription.
func (m *mockSubscriptionRepository) stored(id uint) *subscription.Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneSubscription(m.subs[id])
}

func cloneSubscription(s *subscription.Subscription) *subscription.Subscription {
	if s == nil {
		return nil
	}
	c, err := subscription.ReconstructSubscription(subscription.SubscriptionSnapshot{
		ID:               s.ID(),
		SID:              s.SID(),
		UserID:           s.UserID(),
		PlanID:           s.PlanID(),
		Status:           s.Status(),
		StartsAt:         s.StartsAt(),
		ExpiresAt:        s.ExpiresAt(),
		NextRenewalAt:    s.NextRenewalAt(),
		LastRenewalAt:    s.LastRenewalAt(),
		ScheduledChange:  s.ScheduledChange(),
		AutoRenew:        s.AutoRenew(),
		PaymentHealth:    s.PaymentHealth(),
		CreditBalance:    s.CreditBalance(),
		ServiceAccountID: s.ServiceAccountID(),
		CancelReason:     s.CancelReason(),
		CancelledAt:      s.CancelledAt(),
		Version:          s.Version(),
		CreatedAt:        s.CreatedAt(),
		UpdatedAt:        s.UpdatedAt(),
	})
	if err != nil {
		panic(err)
	}
	return c
}

func sortIDs(ids []uint) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j] < ids[j-1]; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
}

type mockPlanRepository struct {
	plans map[uint]*subscription.Plan
}

func newMockPlanRepository(plans ...*subscription.Plan) *mockPlanRepository {
	m := &mockPlanRepository{plans: make(map[uint]*subscription.Plan)}
	for _, p := range plans {
		m.plans[p.ID()] = p
	}
	return m
}

func (m *mockPlanRepository) Create(ctx context.Context, plan *subscription.Plan) error {
	m.plans[plan.ID()] = plan
	return nil
}

func (m *mockPlanRepository) GetByID(ctx context.Context, id uint) (*subscription.Plan, error) {
	return m.plans[id], nil
}

func (m *mockPlanRepository) GetBySID(ctx context.Context, sid string) (*subscription.Plan, error) {
	for _, p := range m.plans {
		if p.SID() == sid {
			return p, nil
		}
	}
	return nil, nil
}

type mockPlanChangeRepository struct {
	mu      sync.Mutex
	changes map[uint]*subscription.PlanChange
	nextID  uint
}

func newMockPlanChangeRepository() *mockPlanChangeRepository {
	return &mockPlanChangeRepository{changes: make(map[uint]*subscription.PlanChange)}
}

func (m *mockPlanChangeRepository) Create(ctx context.Context, change *subscription.PlanChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	if err := change.SetID(m.nextID); err != nil {
		return err
	}
	m.changes[change.ID()] = clonePlanChange(change)
	return nil
}

func (m *mockPlanChangeRepository) Update(ctx context.Context, change *subscription.PlanChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changes[change.ID()] = clonePlanChange(change)
	return nil
}

func (m *mockPlanChangeRepository) GetByID(ctx context.Context, id uint) (*subscription.PlanChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return clonePlanChange(m.changes[id]), nil
}

func (m *mockPlanChangeRepository) GetBySID(ctx context.Context, sid string) (*subscription.PlanChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.changes {
		if c.SID() == sid {
			return clonePlanChange(c), nil
		}
	}
	return nil, nil
}

func (m *mockPlanChangeRepository) FindScheduledBySubscriptionID(ctx context.Context, subscriptionID uint) ([]*subscription.PlanChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*subscription.PlanChange
	for _, c := range m.changes {
		if c.SubscriptionID() == subscriptionID && c.IsScheduled() {
			out = append(out, clonePlanChange(c))
		}
	}
	return out, nil
}

// all returns every stored change of a subscription.
func (m *mockPlanChangeRepository) all(subscriptionID uint) []*subscription.PlanChange {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*subscription.PlanChange
	for id := uint(1); id <= m.nextID; id++ {
		if c, ok := m.changes[id]; ok && c.SubscriptionID() == subscriptionID {
			out = append(out, clonePlanChange(c))
		}
	}
	return out
}

func clonePlanChange(c *subscription.PlanChange) *subscription.PlanChange {
	if c == nil {
		return nil
	}
	out, err := subscription.ReconstructPlanChange(subscription.PlanChangeSnapshot{
		ID:             c.ID(),
		SID:            c.SID(),
		SubscriptionID: c.SubscriptionID(),
		FromPlanID:     c.FromPlanID(),
		ToPlanID:       c.ToPlanID(),
		ChangeType:     c.ChangeType(),
		ExecutionType:  c.ExecutionType(),
		Status:         c.Status(),
		CreditAmount:   c.CreditAmount(),
		AmountDue:      c.AmountDue(),
		ScheduledAt:    c.ScheduledAt(),
		PricedUntil:    c.PricedUntil(),
		CompletedAt:    c.CompletedAt(),
		CancelledAt:    c.CancelledAt(),
		CreatedAt:      c.CreatedAt(),
		UpdatedAt:      c.UpdatedAt(),
	})
	if err != nil {
		panic(err)
	}
	return out
}

type mockOrderRepository struct {
	mu     sync.Mutex
	orders []*order.Order
	nextID uint

	CreateFunc func(ctx context.Context, o *order.Order) error
}

func (m *mockOrderRepository) Create(ctx context.Context, o *order.Order) error {
	if m.CreateFunc != nil {
		if err := m.CreateFunc(ctx, o); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	if err := o.SetID(m.nextID); err != nil {
		return err
	}
	m.orders = append(m.orders, o)
	return nil
}

func (m *mockOrderRepository) GetByOrderNo(ctx context.Context, orderNo string) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.OrderNo() == orderNo {
			return o, nil
		}
	}
	return nil, nil
}

func (m *mockOrderRepository) FindLatestProvisioned(ctx context.Context, subscriptionID uint) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.orders) - 1; i >= 0; i-- {
		if o := m.orders[i]; o.SubscriptionID() == subscriptionID && o.IsProvisioned() {
			return o, nil
		}
	}
	return nil, nil
}

func (m *mockOrderRepository) forSubscription(subscriptionID uint) []*order.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*order.Order
	for _, o := range m.orders {
		if o.SubscriptionID() == subscriptionID {
			out = append(out, o)
		}
	}
	return out
}

type mockTransactionManager struct {
	Calls int
}

func (m *mockTransactionManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.Calls++
	return fn(ctx)
}

type sentNotification struct {
	UserID uint
	Kind   NotificationKind
	Data   map[string]any
}

type mockNotifier struct {
	mu   sync.Mutex
	sent []sentNotification

	SendFunc func(ctx context.Context, userID uint, kind NotificationKind, data map[string]any) error
}

func (m *mockNotifier) Send(ctx context.Context, userID uint, kind NotificationKind, data map[string]any) error {
	if m.SendFunc != nil {
		if err := m.SendFunc(ctx, userID, kind, data); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentNotification{UserID: userID, Kind: kind, Data: data})
	return nil
}

func (m *mockNotifier) kinds() []NotificationKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]NotificationKind, 0, len(m.sent))
	for _, n := range m.sent {
		out = append(out, n.Kind)
	}
	return out
}

type mockProvisioningQueue struct {
	mu           sync.Mutex
	instructions []ProvisioningInstruction

	EnqueueFunc func(ctx context.Context, instruction ProvisioningInstruction) error
}

func (m *mockProvisioningQueue) Enqueue(ctx context.Context, instruction ProvisioningInstruction) error {
	if m.EnqueueFunc != nil {
		if err := m.EnqueueFunc(ctx, instruction); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.instructions = append(m.instructions, instruction)
	return nil
}

type mockUserDirectory struct {
	GetContactFunc func(ctx context.Context, userID uint) (*UserContact, error)
}

func (m *mockUserDirectory) GetContact(ctx context.Context, userID uint) (*UserContact, error) {
	if m.GetContactFunc != nil {
		return m.GetContactFunc(ctx, userID)
	}
	return nil, nil
}

// mockGateway answers every charge with ChargeFunc; it defaults to success.
type mockGateway struct {
	name ledger.GatewayName

	mu       sync.Mutex
	requests []paymentgateway.ChargeRequest

	ChargeFunc func(ctx context.Context, req paymentgateway.ChargeRequest) (*paymentgateway.ChargeResult, error)
}

func (m *mockGateway) Name() ledger.GatewayName {
	return m.name
}

func (m *mockGateway) ChargeRecurring(ctx context.Context, req paymentgateway.ChargeRequest) (*paymentgateway.ChargeResult, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.ChargeFunc != nil {
		return m.ChargeFunc(ctx, req)
	}
	return &paymentgateway.ChargeResult{
		Success:       true,
		Reference:     req.Reference,
		TransactionID: "txn_" + req.Reference,
		RawResponse:   map[string]any{"status": "success"},
	}, nil
}

func (m *mockGateway) calls() []paymentgateway.ChargeRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]paymentgateway.ChargeRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

type mockMetrics struct {
	mu         sync.Mutex
	renewals   map[string]int
	charges    int
	warnings   int
	suspended  int
	expired    int
	planChange []string
}

func newMockMetrics() *mockMetrics {
	return &mockMetrics{renewals: make(map[string]int)}
}

func (m *mockMetrics) RenewalOutcome(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.renewals[outcome]++
}

func (m *mockMetrics) ChargeCompleted(ledger.GatewayName, bool, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.charges++
}

func (m *mockMetrics) SuspensionWarningSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warnings++
}

func (m *mockMetrics) SubscriptionSuspended() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suspended++
}

func (m *mockMetrics) SubscriptionExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expired++
}

func (m *mockMetrics) PlanChange(changeType, executionType, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.planChange = append(m.planChange, changeType+"/"+executionType+"/"+status)
}

type mockReconciliationLog struct {
	mu      sync.Mutex
	entries []ChargeReconciliation
	holds   map[uint]bool
}

func (m *mockReconciliationLog) Record(ctx context.Context, entry ChargeReconciliation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	if entry.Reason == ReconcileChargePending {
		if m.holds == nil {
			m.holds = make(map[uint]bool)
		}
		m.holds[entry.SubscriptionID] = true
	}
	return nil
}

func (m *mockReconciliationLog) Held(ctx context.Context, subscriptionID uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.holds[subscriptionID], nil
}

func (m *mockReconciliationLog) release(subscriptionID uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.holds, subscriptionID)
}

func (m *mockReconciliationLog) recorded() []ChargeReconciliation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ChargeReconciliation(nil), m.entries...)
}

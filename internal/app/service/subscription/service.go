package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/fatflowers/coursesub/internal/app/service/audit"
	"github.com/fatflowers/coursesub/internal/app/service/order"
	"github.com/fatflowers/coursesub/internal/app/service/period"
	"github.com/fatflowers/coursesub/internal/app/service/plan"
	"github.com/fatflowers/coursesub/internal/models"
	"github.com/fatflowers/coursesub/pkg/logctx"
	"github.com/fatflowers/coursesub/pkg/metrics"
	"github.com/fatflowers/coursesub/pkg/tool"
	"github.com/fatflowers/coursesub/pkg/types"
)

const (
	metricType = "subscription"
	// maxPlanRetries bounds how often a mutation restarts after the plan
	// it priced against was switched underneath it.
	maxPlanRetries = 3
)

// PlanCatalog resolves plan ids. Lookups happen outside the state transaction.
type PlanCatalog interface {
	GetPlan(ctx context.Context, planID string) (*models.Plan, error)
}

type AuditRecorder interface {
	RecordHistory(ctx context.Context, entry *models.SubscriptionHistory) error
	RecordTransaction(ctx context.Context, entry *models.SubscriptionTransaction) error
}

type OrderBook interface {
	FindByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	MarkCompleted(ctx context.Context, orderID string) error
	ListIncompleteWithPayments(ctx context.Context) ([]*models.Order, error)
}

type OrderDetails struct {
	OrderNumber string           `json:"order_number"`
	Total       *decimal.Decimal `json:"total"`
}

type CreateRequest struct {
	PlanID        string
	PaymentMethod string
	OrderDetails  *OrderDetails
}

type CreateResult struct {
	Subscription *models.Subscription `json:"subscription"`
	Amount       decimal.Decimal      `json:"amount"`
}

// Service implements the subscription lifecycle. State changes commit in one
// transaction; audit entries are written after the commit on a best-effort basis.
type Service struct {
	db     *gorm.DB
	log    *zap.SugaredLogger
	store  *Store
	plans  PlanCatalog
	audit  AuditRecorder
	orders OrderBook
	now    func() time.Time
}

func NewService(db *gorm.DB, log *zap.SugaredLogger, store *Store, plans *plan.Service, recorder *audit.Service, orders *order.Service) *Service {
	return newService(db, log, store, plans, recorder, orders)
}

func newService(db *gorm.DB, log *zap.SugaredLogger, store *Store, plans PlanCatalog, recorder AuditRecorder, orders OrderBook) *Service {
	return &Service{
		db:     db,
		log:    log,
		store:  store,
		plans:  plans,
		audit:  recorder,
		orders: orders,
		now: func() time.Time {
			// postgres keeps microseconds
			return time.Now().UTC().Truncate(time.Microsecond)
		},
	}
}

// Create starts a new active subscription for userID on req.PlanID.
func (s *Service) Create(ctx context.Context, userID string, req *CreateRequest) (*CreateResult, error) {
	defer metrics.ObserveBusinessProcess(metricType, "create", time.Now())
	l := logctx.FromCtx(ctx, s.log)

	if userID == "" || req == nil || req.PlanID == "" {
		return nil, fmt.Errorf("%w: user id and plan id are required", ErrInvalidRequest)
	}
	p, err := s.activePlan(ctx, req.PlanID)
	if err != nil {
		return nil, s.fail(ctx, "create: get plan", err)
	}

	amount := p.Price
	var ord *models.Order
	var orderNumber string
	if d := req.OrderDetails; d != nil {
		if d.Total != nil {
			if d.Total.IsNegative() {
				return nil, fmt.Errorf("%w: negative order total", ErrInvalidRequest)
			}
			amount = *d.Total
		}
		orderNumber = d.OrderNumber
		if ord, err = s.orders.FindByNumber(ctx, d.OrderNumber); err != nil {
			l.Warnw("order lookup failed, creating subscription without order link",
				"order_number", d.OrderNumber, "err", err)
			ord = nil
		}
		if ord != nil && ord.UserID != userID {
			l.Warnw("order belongs to another user, creating subscription without order link",
				"order_number", d.OrderNumber, "order_user_id", ord.UserID)
			ord = nil
		}
	}

	now := s.now()
	end, err := period.EndDate(now, p.BillingInterval)
	if err != nil {
		return nil, s.fail(ctx, "create: end date", err)
	}
	sub := &models.Subscription{
		ID:              tool.GenerateUUIDV7(),
		UserID:          userID,
		PlanID:          p.ID,
		Status:          types.SubscriptionStatusActive,
		StartDate:       now,
		EndDate:         end,
		AutoRenew:       true,
		PaymentMethod:   req.PaymentMethod,
		LastPaymentDate: &now,
		NextPaymentDate: &end,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.store.TryCreateActive(ctx, tx, sub)
	})
	if err != nil {
		return nil, s.fail(ctx, "create", s.describeActive(ctx, userID, err))
	}

	auditCtx := context.WithoutCancel(ctx)
	s.recordHistory(auditCtx, sub, types.SubscriptionChangeTypeNew, nil, p, p.Price, now)
	var orderID *string
	if ord != nil {
		orderID = &ord.ID
	}
	s.recordPayment(auditCtx, sub, types.SubscriptionChangeTypeNew, p, amount, orderID, orderNumber)
	if ord != nil {
		if err := s.orders.MarkCompleted(auditCtx, ord.ID); err != nil {
			l.Warnw("failed to complete order, left for reconcile", "order_id", ord.ID, "err", err)
		}
	}

	l.Infow("subscription created", "subscription_id", sub.ID, "user_id", userID,
		"plan_id", p.ID, "amount", amount.String(), "end_date", end)
	return &CreateResult{Subscription: sub, Amount: amount}, nil
}

// Cancel stops auto renewal. Access is kept until EndDate.
func (s *Service) Cancel(ctx context.Context, userID, subscriptionID string) (*models.Subscription, error) {
	defer metrics.ObserveBusinessProcess(metricType, "cancel", time.Now())

	sub, _, err := s.mutate(ctx, userID, subscriptionID, mutation{
		check: requireActive,
		apply: func(_ *gorm.DB, sub *models.Subscription, _ *models.Plan, _ time.Time) error {
			sub.Status = types.SubscriptionStatusCancelled
			sub.AutoRenew = false
			return nil
		},
	})
	if err != nil {
		return nil, s.fail(ctx, "cancel", err)
	}

	auditCtx := context.WithoutCancel(ctx)
	var currency string
	if p, err := s.plans.GetPlan(auditCtx, sub.PlanID); err == nil {
		currency = p.Currency
	}
	s.recordHistory(auditCtx, sub, types.SubscriptionChangeTypeCancel, &sub.PlanID,
		&models.Plan{ID: sub.PlanID, Currency: currency}, decimal.Zero, s.now())

	logctx.FromCtx(ctx, s.log).Infow("subscription cancelled", "subscription_id", sub.ID, "user_id", userID,
		"end_date", sub.EndDate)
	return sub, nil
}

// Renew charges the current plan again and starts a fresh period from now.
// Cancelled and expired subscriptions go through Reactivate instead.
func (s *Service) Renew(ctx context.Context, userID, subscriptionID string) (*models.Subscription, error) {
	defer metrics.ObserveBusinessProcess(metricType, "renew", time.Now())
	return s.restart(ctx, userID, subscriptionID, types.SubscriptionChangeTypeRenew, requireRenewable)
}

// Reactivate brings a cancelled or expired subscription back to active with
// a fresh period and a new charge.
func (s *Service) Reactivate(ctx context.Context, userID, subscriptionID string) (*models.Subscription, error) {
	defer metrics.ObserveBusinessProcess(metricType, "reactivate", time.Now())
	return s.restart(ctx, userID, subscriptionID, types.SubscriptionChangeTypeReactivate, requireReactivatable)
}

func (s *Service) restart(ctx context.Context, userID, subscriptionID string, changeType types.SubscriptionChangeType, check func(*models.Subscription) error) (*models.Subscription, error) {
	op := string(changeType)
	var now time.Time
	sub, p, err := s.mutate(ctx, userID, subscriptionID, mutation{
		check:    check,
		withPlan: true,
		apply: func(tx *gorm.DB, sub *models.Subscription, p *models.Plan, at time.Time) error {
			if changeType == types.SubscriptionChangeTypeReactivate {
				other, err := s.store.FindActiveByUser(ctx, tx, sub.UserID)
				if err != nil {
					return err
				}
				if other != nil && other.ID != sub.ID {
					return alreadyActiveFrom(other)
				}
			}
			now = at
			return startPeriod(sub, p, at)
		},
	})
	if err != nil {
		return nil, s.fail(ctx, op, s.describeActive(ctx, userID, err))
	}

	auditCtx := context.WithoutCancel(ctx)
	s.recordHistory(auditCtx, sub, changeType, &p.ID, p, p.Price, now)
	s.recordPayment(auditCtx, sub, changeType, p, p.Price, nil, "")

	logctx.FromCtx(ctx, s.log).Infow("subscription "+op+" applied", "subscription_id", sub.ID, "user_id", userID,
		"plan_id", p.ID, "end_date", sub.EndDate)
	return sub, nil
}

// ChangePlan moves an active subscription to newPlanID, restarting the period
// and charging the new price. A change to a plan that is not more expensive
// is recorded as a downgrade.
func (s *Service) ChangePlan(ctx context.Context, userID, subscriptionID, newPlanID string) (*models.Subscription, error) {
	defer metrics.ObserveBusinessProcess(metricType, "change_plan", time.Now())

	if newPlanID == "" {
		return nil, fmt.Errorf("%w: new plan id is required", ErrInvalidRequest)
	}
	next, err := s.activePlan(ctx, newPlanID)
	if err != nil {
		return nil, s.fail(ctx, "change_plan: get plan", err)
	}

	var (
		now        time.Time
		changeType types.SubscriptionChangeType
	)
	sub, current, err := s.mutate(ctx, userID, subscriptionID, mutation{
		check:    requireActive,
		withPlan: true,
		apply: func(_ *gorm.DB, sub *models.Subscription, current *models.Plan, at time.Time) error {
			now = at
			changeType = classifyChange(current, next)
			sub.PlanID = next.ID
			return startPeriod(sub, next, at)
		},
	})
	if err != nil {
		return nil, s.fail(ctx, "change_plan", err)
	}

	auditCtx := context.WithoutCancel(ctx)
	s.recordHistory(auditCtx, sub, changeType, &current.ID, next, next.Price, now)
	s.recordPayment(auditCtx, sub, changeType, next, next.Price, nil, "")

	logctx.FromCtx(ctx, s.log).Infow("subscription plan changed", "subscription_id", sub.ID, "user_id", userID,
		"from", current.ID, "to", next.ID, "change_type", changeType)
	return sub, nil
}

// ToggleAutoRenew flips the auto renew flag of an active subscription.
func (s *Service) ToggleAutoRenew(ctx context.Context, userID, subscriptionID string) (*models.Subscription, bool, error) {
	defer metrics.ObserveBusinessProcess(metricType, "toggle_auto_renew", time.Now())

	sub, _, err := s.mutate(ctx, userID, subscriptionID, mutation{
		check: requireActive,
		apply: func(_ *gorm.DB, sub *models.Subscription, _ *models.Plan, _ time.Time) error {
			sub.AutoRenew = !sub.AutoRenew
			return nil
		},
	})
	if err != nil {
		return nil, false, s.fail(ctx, "toggle_auto_renew", err)
	}
	logctx.FromCtx(ctx, s.log).Infow("subscription auto renew toggled", "subscription_id", sub.ID,
		"user_id", userID, "auto_renew", sub.AutoRenew)
	return sub, sub.AutoRenew, nil
}

// GetCurrent returns the user's active subscription.
func (s *Service) GetCurrent(ctx context.Context, userID string) (*models.Subscription, error) {
	sub, err := s.store.FindActiveByUser(ctx, s.db, userID)
	if err != nil {
		return nil, s.fail(ctx, "get_current", err)
	}
	if sub == nil {
		return nil, ErrNotFound
	}
	return sub, nil
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]*models.Subscription, error) {
	subs, err := s.store.ListByUser(ctx, s.db, userID)
	if err != nil {
		return nil, s.fail(ctx, "list", err)
	}
	return subs, nil
}

func (s *Service) Get(ctx context.Context, userID, subscriptionID string) (*models.Subscription, error) {
	if !tool.IsUUID(subscriptionID) {
		return nil, ErrNotFound
	}
	sub, err := s.store.GetByID(ctx, s.db, subscriptionID)
	if err == nil && sub.UserID != userID {
		err = ErrNotAuthorized
	}
	if err != nil {
		return nil, s.fail(ctx, "get", err)
	}
	return sub, nil
}

// ForceDelete removes a subscription row for support cases. Audit entries stay.
func (s *Service) ForceDelete(ctx context.Context, subscriptionID string) error {
	if !tool.IsUUID(subscriptionID) {
		return ErrNotFound
	}
	if err := s.store.Delete(ctx, s.db, subscriptionID); err != nil {
		return s.fail(ctx, "force_delete", err)
	}
	logctx.FromCtx(ctx, s.log).Warnw("subscription force deleted", "subscription_id", subscriptionID)
	return nil
}

// ReconcileOrders completes every order that has a completed payment entry
// but was left pending, e.g. because the process died after the commit.
// It returns the number of orders completed and is safe to run repeatedly.
func (s *Service) ReconcileOrders(ctx context.Context) (int, error) {
	defer metrics.ObserveBusinessProcess(metricType, "reconcile_orders", time.Now())
	l := logctx.FromCtx(ctx, s.log)

	pending, err := s.orders.ListIncompleteWithPayments(ctx)
	if err != nil {
		return 0, s.fail(ctx, "reconcile_orders", err)
	}
	var (
		done int
		errs []error
	)
	for _, o := range pending {
		if err := s.orders.MarkCompleted(ctx, o.ID); err != nil {
			errs = append(errs, fmt.Errorf("order %s: %w", o.ID, err))
			continue
		}
		done++
	}
	if len(errs) > 0 {
		l.Errorw("order reconcile incomplete", "completed", done, "failed", len(errs), "err", errors.Join(errs...))
		return done, fmt.Errorf("%w: reconcile_orders: %d orders failed", ErrInternal, len(errs))
	}
	l.Infow("orders reconciled", "completed", done)
	return done, nil
}

// mutation is one in-place state transition of an existing subscription.
type mutation struct {
	// check validates the state; it runs on the optimistic read and again on
	// the locked row.
	check func(sub *models.Subscription) error
	// withPlan resolves the subscription's current plan before the transaction.
	withPlan bool
	apply    func(tx *gorm.DB, sub *models.Subscription, current *models.Plan, now time.Time) error
}

// mutate loads the subscription, verifies ownership and state, resolves its
// plan, then applies m on the row locked FOR UPDATE and saves it.
func (s *Service) mutate(ctx context.Context, userID, subscriptionID string, m mutation) (*models.Subscription, *models.Plan, error) {
	if !tool.IsUUID(subscriptionID) {
		return nil, nil, ErrNotFound
	}
	for range maxPlanRetries {
		sub, err := s.store.GetByID(ctx, s.db, subscriptionID)
		if err != nil {
			return nil, nil, err
		}
		if err := verify(sub, userID, m.check); err != nil {
			return nil, nil, err
		}
		var current *models.Plan
		if m.withPlan {
			if current, err = s.plans.GetPlan(ctx, sub.PlanID); err != nil {
				return nil, nil, err
			}
		}

		now := s.now()
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			locked, err := s.store.LockByID(ctx, tx, subscriptionID)
			if err != nil {
				return err
			}
			if err := verify(locked, userID, m.check); err != nil {
				return err
			}
			if current != nil && locked.PlanID != current.ID {
				return errPlanChanged
			}
			if err := m.apply(tx, locked, current, now); err != nil {
				return err
			}
			if err := s.store.Update(ctx, tx, locked); err != nil {
				return err
			}
			sub = locked
			return nil
		})
		if errors.Is(err, errPlanChanged) {
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		return sub, current, nil
	}
	return nil, nil, errPlanChanged
}

func verify(sub *models.Subscription, userID string, check func(*models.Subscription) error) error {
	if sub.UserID != userID {
		return ErrNotAuthorized
	}
	if check != nil {
		return check(sub)
	}
	return nil
}

func requireActive(sub *models.Subscription) error {
	if sub.Status != types.SubscriptionStatusActive {
		return fmt.Errorf("%w: status %s", ErrNotActive, sub.Status)
	}
	return nil
}

func requireRenewable(sub *models.Subscription) error {
	switch sub.Status {
	case types.SubscriptionStatusActive, types.SubscriptionStatusTrial:
		return nil
	default:
		return fmt.Errorf("%w: status %s, use reactivate", ErrNotActive, sub.Status)
	}
}

func requireReactivatable(sub *models.Subscription) error {
	switch sub.Status {
	case types.SubscriptionStatusCancelled, types.SubscriptionStatusExpired:
		return nil
	default:
		return fmt.Errorf("%w: status %s", ErrNotReactivatable, sub.Status)
	}
}

// startPeriod opens a paid period on p starting at now.
func startPeriod(sub *models.Subscription, p *models.Plan, now time.Time) error {
	end, err := period.EndDate(now, p.BillingInterval)
	if err != nil {
		return err
	}
	sub.Status = types.SubscriptionStatusActive
	sub.AutoRenew = true
	sub.StartDate = now
	sub.EndDate = end
	sub.LastPaymentDate = &now
	sub.NextPaymentDate = &end
	return nil
}

func classifyChange(current, next *models.Plan) types.SubscriptionChangeType {
	if next.Price.GreaterThan(current.Price) {
		return types.SubscriptionChangeTypeUpgrade
	}
	return types.SubscriptionChangeTypeDowngrade
}

// activePlan resolves a plan a user may buy.
func (s *Service) activePlan(ctx context.Context, planID string) (*models.Plan, error) {
	p, err := s.plans.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, fmt.Errorf("%w: %s is not on sale", ErrPlanNotFound, planID)
	}
	return p, nil
}

// describeActive fills in the blocking subscription when the unique index,
// not the pre-check, rejected the write.
func (s *Service) describeActive(ctx context.Context, userID string, err error) error {
	var aae *AlreadyActiveError
	if !errors.As(err, &aae) {
		return err
	}
	if aae.SubscriptionID == "" {
		if existing, lookupErr := s.store.FindActiveByUser(ctx, s.db, userID); lookupErr == nil && existing != nil {
			aae = alreadyActiveFrom(existing)
		}
	}
	if aae.PlanID != "" && aae.PlanName == "" {
		if p, lookupErr := s.plans.GetPlan(ctx, aae.PlanID); lookupErr == nil {
			aae.PlanName = p.Name
		}
	}
	return aae
}

// fail passes typed errors through and collapses anything else into ErrInternal.
func (s *Service) fail(ctx context.Context, op string, err error) error {
	if isBusinessError(err) {
		logctx.FromCtx(ctx, s.log).Infow("subscription operation rejected", "op", op, "reason", err.Error())
		return err
	}
	logctx.FromCtx(ctx, s.log).Errorw("subscription operation failed", "op", op, "err", err)
	return fmt.Errorf("%w: %s", ErrInternal, op)
}

func (s *Service) recordHistory(ctx context.Context, sub *models.Subscription, changeType types.SubscriptionChangeType, previousPlanID *string, p *models.Plan, amount decimal.Decimal, at time.Time) {
	entry := &models.SubscriptionHistory{
		UserID:         sub.UserID,
		SubscriptionID: sub.ID,
		PreviousPlanID: previousPlanID,
		ChangeType:     changeType,
		Amount:         amount,
		Currency:       p.Currency,
		EffectiveDate:  at,
	}
	if changeType != types.SubscriptionChangeTypeCancel {
		entry.NewPlanID = &p.ID
	}
	if err := s.audit.RecordHistory(ctx, entry); err != nil {
		metrics.IncAuditWriteFailure("history")
		logctx.FromCtx(ctx, s.log).Errorw("audit history write failed", "subscription_id", sub.ID,
			"change_type", changeType, "err", err)
	}
}

func (s *Service) recordPayment(ctx context.Context, sub *models.Subscription, changeType types.SubscriptionChangeType, p *models.Plan, amount decimal.Decimal, orderID *string, orderNumber string) {
	entry := &models.SubscriptionTransaction{
		SubscriptionID:  sub.ID,
		OrderID:         orderID,
		TransactionType: types.TransactionTypePayment,
		Amount:          amount,
		Currency:        p.Currency,
		PaymentMethod:   sub.PaymentMethod,
		Status:          types.TransactionStatusCompleted,
	}
	entry.Extra = datatypes.NewJSONType(&models.SubscriptionTransactionExtra{
		OrderNumber:  orderNumber,
		PlanSnapshot: p.Snapshot(),
		ChangeType:   changeType,
	})
	if err := s.audit.RecordTransaction(ctx, entry); err != nil {
		metrics.IncAuditWriteFailure("transaction")
		logctx.FromCtx(ctx, s.log).Errorw("audit transaction write failed", "subscription_id", sub.ID,
			"change_type", changeType, "amount", amount.String(), "err", err)
	}
}

package subscription

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

type Plan string

const (
	PlanMonthly Plan = "monthly"
	PlanYearly  Plan = "yearly"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusCanceled Status = "canceled"
)

var (
	// ErrNotFound indicates no subscription record exists for the business.
	ErrNotFound = errors.New("subscription: not found")
	// ErrInvalidPlan rejects plans other than monthly or yearly.
	ErrInvalidPlan = errors.New("subscription: invalid plan")
	// ErrBusinessRequired rejects blank business names.
	ErrBusinessRequired = errors.New("subscription: business required")
)

// Subscription is the single record kept per business. Activation replaces any prior record.
type Subscription struct {
	Business       string     `json:"businessName" dynamodbav:"business"`
	Plan           Plan       `json:"plan" dynamodbav:"plan"`
	Status         Status     `json:"status" dynamodbav:"status"`
	CustomerID     string     `json:"customerId,omitempty" dynamodbav:"customerId,omitempty"`
	SubscriptionID string     `json:"subscriptionId,omitempty" dynamodbav:"subscriptionId,omitempty"`
	ActivatedAt    time.Time  `json:"activatedAt" dynamodbav:"activatedAt"`
	CanceledAt     *time.Time `json:"canceledAt,omitempty" dynamodbav:"canceledAt,omitempty"`
}

// Active reports whether the record currently grants unlimited chat.
func (s *Subscription) Active() bool {
	return s != nil && s.Status == StatusActive
}

// Store persists subscription records keyed by business.
type Store interface {
	// Get returns ErrNotFound when the business has no record.
	Get(ctx context.Context, business string) (*Subscription, error)
	// Save upserts the record, replacing whatever was stored for the business.
	Save(ctx context.Context, sub *Subscription) error
	List(ctx context.Context) ([]Subscription, error)
}

// ActivationHook runs after a subscription becomes active, e.g. to reset demo counters.
type ActivationHook func(ctx context.Context, business string) error

// Service implements the subscription lifecycle on top of a Store.
type Service struct {
	store      Store
	onActivate []ActivationHook
	now        func() time.Time
}

func NewService(store Store, hooks ...ActivationHook) *Service {
	if store == nil {
		panic("subscription: store cannot be nil")
	}
	return &Service{store: store, onActivate: hooks, now: time.Now}
}

// IsActive reports whether business has an active subscription. A missing record is not an error.
func (s *Service) IsActive(ctx context.Context, business string) (bool, error) {
	sub, err := s.store.Get(ctx, business)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("subscription: check %s: %w", business, err)
	}
	return sub.Active(), nil
}

// Get returns the stored record for business.
func (s *Service) Get(ctx context.Context, business string) (*Subscription, error) {
	return s.store.Get(ctx, business)
}

// ActivateRequest describes a manual or provider-driven activation.
type ActivateRequest struct {
	Business       string `json:"businessName"`
	Plan           Plan   `json:"plan,omitempty"`
	CustomerID     string `json:"customerId,omitempty"`
	SubscriptionID string `json:"subscriptionId,omitempty"`
}

// Activate replaces any prior record with an active one. Plan defaults to monthly;
// missing provider ids are filled with manual placeholders.
func (s *Service) Activate(ctx context.Context, req ActivateRequest) (*Subscription, error) {
	business := strings.TrimSpace(req.Business)
	if business == "" {
		return nil, ErrBusinessRequired
	}
	plan := req.Plan
	if plan == "" {
		plan = PlanMonthly
	}
	if plan != PlanMonthly && plan != PlanYearly {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPlan, plan)
	}
	now := s.now().UTC()
	sub := &Subscription{
		Business:       business,
		Plan:           plan,
		Status:         StatusActive,
		CustomerID:     req.CustomerID,
		SubscriptionID: req.SubscriptionID,
		ActivatedAt:    now,
	}
	if sub.CustomerID == "" {
		sub.CustomerID = "manual"
	}
	if sub.SubscriptionID == "" {
		sub.SubscriptionID = fmt.Sprintf("manual-%d", now.UnixMilli())
	}
	if err := s.store.Save(ctx, sub); err != nil {
		return nil, fmt.Errorf("subscription: activate %s: %w", business, err)
	}
	for _, hook := range s.onActivate {
		if err := hook(ctx, business); err != nil {
			return sub, fmt.Errorf("subscription: post-activation %s: %w", business, err)
		}
	}
	return sub, nil
}

// Deactivate marks the record canceled. Returns ErrNotFound when nothing is stored.
func (s *Service) Deactivate(ctx context.Context, business string) (*Subscription, error) {
	sub, err := s.store.Get(ctx, business)
	if err != nil {
		return nil, err
	}
	canceledAt := s.now().UTC()
	sub.Status = StatusCanceled
	sub.CanceledAt = &canceledAt
	if err := s.store.Save(ctx, sub); err != nil {
		return nil, fmt.Errorf("subscription: deactivate %s: %w", business, err)
	}
	return sub, nil
}

// List returns every stored record.
func (s *Service) List(ctx context.Context) ([]Subscription, error) {
	subs, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("subscription: list: %w", err)
	}
	return subs, nil
}

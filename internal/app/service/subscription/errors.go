package subscription

import (
	"errors"
	"fmt"
	"time"

	"github.com/fatflowers/coursesub/internal/app/service/period"
	"github.com/fatflowers/coursesub/internal/app/service/plan"
)

var (
	ErrAlreadyActive    = errors.New("user already has an active subscription")
	ErrPlanNotFound     = plan.ErrPlanNotFound
	ErrNotFound         = errors.New("subscription not found")
	ErrNotAuthorized    = errors.New("subscription does not belong to user")
	ErrNotActive        = errors.New("subscription is not active")
	ErrNotReactivatable = errors.New("only cancelled or expired subscriptions can be reactivated")
	ErrInvalidRequest   = errors.New("invalid request")
	ErrInvalidInterval  = period.ErrInvalidInterval
	// ErrInternal marks data layer failures. The operation may have partially
	// applied; create must not be retried before checking the current subscription.
	ErrInternal = errors.New("internal error")

	// errPlanChanged aborts a mutation whose plan was switched between the
	// optimistic read and the locked read.
	errPlanChanged = errors.New("subscription plan changed concurrently")
)

// AlreadyActiveError carries the subscription that blocks a create or
// reactivate, for display to the user.
type AlreadyActiveError struct {
	SubscriptionID string
	PlanID         string
	PlanName       string
	EndDate        time.Time
}

func (e *AlreadyActiveError) Error() string {
	if e.EndDate.IsZero() {
		return ErrAlreadyActive.Error()
	}
	name := e.PlanName
	if name == "" {
		name = e.PlanID
	}
	return fmt.Sprintf("%s: plan %q active until %s", ErrAlreadyActive, name, e.EndDate.Format(time.DateOnly))
}

func (e *AlreadyActiveError) Unwrap() error { return ErrAlreadyActive }

var businessErrors = []error{
	ErrAlreadyActive,
	ErrPlanNotFound,
	ErrNotFound,
	ErrNotAuthorized,
	ErrNotActive,
	ErrNotReactivatable,
	ErrInvalidRequest,
	ErrInvalidInterval,
	ErrInternal,
}

// isBusinessError reports whether err is already part of the typed taxonomy
// and can be handed to the caller as is.
func isBusinessError(err error) bool {
	for _, target := range businessErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

package jsondoc

import (
	"context"

	"github.com/warp/leave-tracker/leave"
)

// =============================================================================
// RECORD VIEWS - Derived reads over a copied record
// =============================================================================

// UserView is a user record plus a back-reference to the store that owns
// it. The embedded record is a copy taken at lookup time; derived values are
// recomputed on every call. A view must not outlive its store.
type UserView struct {
	leave.User
	store *Store
}

// FullName returns the display name of the user.
func (v UserView) FullName() string { return leave.FullName(v.User) }

// Summary computes the balance breakdown in the current period. The period
// and the user's requests are read together under one lock.
func (v UserView) Summary(_ context.Context) leave.BalanceSummary {
	v.store.mu.RLock()
	period := v.store.settingLocked(leave.SettingCurrentPeriod, leave.DefaultPeriod)
	requests := v.store.requestsOfLocked(v.ID)
	v.store.mu.RUnlock()

	return leave.Summarize(v.User, requests, period)
}

// Consumed is the number of approved vacation days in the current period.
func (v UserView) Consumed(ctx context.Context) int { return v.Summary(ctx).Consumed }

// Balance is the allotment minus Consumed. It may be negative.
func (v UserView) Balance(ctx context.Context) int { return v.Summary(ctx).Balance }

// RequestView is a request record plus a back-reference to its store.
type RequestView struct {
	leave.Request
	store *Store
}

// Owner looks up the user owning the request. It returns nil when that user
// no longer exists. Nothing is cached: each call asks the store again.
func (v RequestView) Owner(ctx context.Context) (*UserView, error) {
	return v.store.GetUserByID(ctx, v.UserID)
}

func (s *Store) userView(u leave.User) UserView {
	return UserView{User: u, store: s}
}

func (s *Store) requestView(r leave.Request) RequestView {
	return RequestView{Request: r, store: s}
}

package jsondoc

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/warp/leave-tracker/leave"
)

// =============================================================================
// REQUESTS
// =============================================================================

// ListRequests returns every request in document order.
func (s *Store) ListRequests(_ context.Context) ([]RequestView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	views := make([]RequestView, len(s.doc.Requests))
	for i, r := range s.doc.Requests {
		views[i] = s.requestView(r)
	}
	return views, nil
}

// ListRequestsForUser returns the requests owned by userID in document order.
func (s *Store) ListRequestsForUser(_ context.Context, userID int64) ([]RequestView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	views := []RequestView{}
	for _, r := range s.doc.Requests {
		if r.UserID == userID {
			views = append(views, s.requestView(r))
		}
	}
	return views, nil
}

// GetRequestByID returns the request with id, or nil if there is none.
func (s *Store) GetRequestByID(_ context.Context, id int64) (*RequestView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.requestIndex(id); i >= 0 {
		v := s.requestView(s.doc.Requests[i])
		return &v, nil
	}
	return nil, nil
}

// CreateRequest appends r with a freshly assigned id and persists.
//
// The store fixes the creation-time fields: status is always Pending, the
// working-day count is computed from Start/End, and an empty Period is
// filled with the current period setting. The owner is not checked.
func (s *Store) CreateRequest(_ context.Context, r leave.Request) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createRequestLocked(r)
}

// SubmitRequest creates a request on behalf of userID, snapshotting the
// user's display name and the current period.
func (s *Store) SubmitRequest(_ context.Context, userID int64, in leave.SubmitInput) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.userIndex(userID)
	if i < 0 {
		return 0, fmt.Errorf("submit for user %d: %w", userID, leave.ErrUserNotFound)
	}

	return s.createRequestLocked(leave.Request{
		UserID:   userID,
		Name:     leave.FullName(s.doc.Users[i]),
		Start:    in.Start,
		End:      in.End,
		Category: in.Category,
		Remark:   in.Remark,
	})
}

// UpdateRequest merges patch into the first request with id and persists.
// It reports false, and writes nothing, when no request matches. The
// working-day count is never recomputed.
func (s *Store) UpdateRequest(_ context.Context, id int64, patch leave.RequestPatch) (bool, error) {
	if patch.Status != nil && !patch.Status.Valid() {
		return false, leave.ErrInvalidStatus
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.requestIndex(id)
	if i < 0 {
		return false, nil
	}
	patch.Apply(&s.doc.Requests[i])
	return true, s.persistLocked()
}

// SetRequestStatus moves the request with id to status.
func (s *Store) SetRequestStatus(ctx context.Context, id int64, status leave.Status) error {
	ok, err := s.UpdateRequest(ctx, id, leave.RequestPatch{Status: &status})
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("request %d: %w", id, leave.ErrRequestNotFound)
	}
	s.log.Info("request status changed", zap.Int64("request_id", id), zap.String("status", string(status)))
	return nil
}

// =============================================================================
// HELPERS - caller holds s.mu
// =============================================================================

func (s *Store) createRequestLocked(r leave.Request) (int64, error) {
	r.ID = s.nextRequestIDLocked()
	r.Status = leave.StatusPending
	r.WorkingDays = leave.WorkingDays(r.Start, r.End)
	if r.Period == "" {
		r.Period = s.settingLocked(leave.SettingCurrentPeriod, leave.DefaultPeriod)
	}

	s.doc.Requests = append(s.doc.Requests, r)
	s.doc.Sequences.Requests = r.ID

	s.log.Info("request created",
		zap.Int64("request_id", r.ID),
		zap.Int64("user_id", r.UserID),
		zap.Int("working_days", r.WorkingDays),
		zap.String("period", r.Period),
	)
	return r.ID, s.persistLocked()
}

func (s *Store) requestIndex(id int64) int {
	for i, r := range s.doc.Requests {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) nextRequestIDLocked() int64 {
	highest := s.doc.Sequences.Requests
	for _, r := range s.doc.Requests {
		if r.ID > highest {
			highest = r.ID
		}
	}
	return highest + 1
}

// requestsOfLocked returns a copy of the raw requests owned by userID.
func (s *Store) requestsOfLocked(userID int64) []leave.Request {
	var out []leave.Request
	for _, r := range s.doc.Requests {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out
}

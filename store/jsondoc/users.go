package jsondoc

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/warp/leave-tracker/leave"
)

// =============================================================================
// USERS
// =============================================================================

// ListUsers returns every user in document order.
func (s *Store) ListUsers(_ context.Context) ([]UserView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	views := make([]UserView, len(s.doc.Users))
	for i, u := range s.doc.Users {
		views[i] = s.userView(u)
	}
	return views, nil
}

// GetUserByID returns the user with id, or nil if there is none.
func (s *Store) GetUserByID(_ context.Context, id int64) (*UserView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.userIndex(id); i >= 0 {
		v := s.userView(s.doc.Users[i])
		return &v, nil
	}
	return nil, nil
}

// GetUserByUsername returns the first user named username, or nil.
func (s *Store) GetUserByUsername(_ context.Context, username string) (*UserView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.usernameIndex(username); i >= 0 {
		v := s.userView(s.doc.Users[i])
		return &v, nil
	}
	return nil, nil
}

// CreateUser appends u with a freshly assigned id and persists. Username
// uniqueness is the caller's job; an empty role defaults to Employee.
func (s *Store) CreateUser(_ context.Context, u leave.User) (int64, error) {
	if err := checkUser(&u); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createUserLocked(u)
}

// CreateUniqueUser is CreateUser with the username check done under the
// same lock as the insert. It fails with ErrUsernameTaken when the name is
// already in use.
func (s *Store) CreateUniqueUser(_ context.Context, u leave.User) (int64, error) {
	if err := checkUser(&u); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.usernameIndex(u.Username) >= 0 {
		return 0, fmt.Errorf("%q: %w", u.Username, leave.ErrUsernameTaken)
	}
	return s.createUserLocked(u)
}

// UpdateUser merges patch into the first user with id and persists. It
// reports false, and writes nothing, when no user matches.
func (s *Store) UpdateUser(_ context.Context, id int64, patch leave.UserPatch) (bool, error) {
	if err := checkPatch(patch); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateUserLocked(id, patch)
}

// UpdateUniqueUser is UpdateUser that refuses a username held by another
// user, checked under the same lock as the write.
func (s *Store) UpdateUniqueUser(_ context.Context, id int64, patch leave.UserPatch) (bool, error) {
	if err := checkPatch(patch); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if patch.Username != nil {
		if i := s.usernameIndex(*patch.Username); i >= 0 && s.doc.Users[i].ID != id {
			return false, fmt.Errorf("%q: %w", *patch.Username, leave.ErrUsernameTaken)
		}
	}
	return s.updateUserLocked(id, patch)
}

// DeleteUser removes the user with id together with every request it owns,
// in a single rewrite. It reports false when no user matches.
func (s *Store) DeleteUser(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := s.doc.Users[:0:0]
	for _, u := range s.doc.Users {
		if u.ID != id {
			users = append(users, u)
		}
	}
	if len(users) == len(s.doc.Users) {
		return false, nil
	}

	requests := s.doc.Requests[:0:0]
	for _, r := range s.doc.Requests {
		if r.UserID != id {
			requests = append(requests, r)
		}
	}
	removed := len(s.doc.Requests) - len(requests)

	s.doc.Users = users
	s.doc.Requests = requests

	s.log.Info("user deleted", zap.Int64("user_id", id), zap.Int("requests_removed", removed))
	return true, s.persistLocked()
}

// =============================================================================
// HELPERS - caller holds s.mu
// =============================================================================

func (s *Store) createUserLocked(u leave.User) (int64, error) {
	u.ID = s.nextUserIDLocked()
	s.doc.Users = append(s.doc.Users, u)
	s.doc.Sequences.Users = u.ID

	s.log.Info("user created", zap.Int64("user_id", u.ID), zap.String("username", u.Username))
	return u.ID, s.persistLocked()
}

func (s *Store) updateUserLocked(id int64, patch leave.UserPatch) (bool, error) {
	i := s.userIndex(id)
	if i < 0 {
		return false, nil
	}
	patch.Apply(&s.doc.Users[i])
	return true, s.persistLocked()
}

func (s *Store) usernameIndex(username string) int {
	for i, u := range s.doc.Users {
		if u.Username == username {
			return i
		}
	}
	return -1
}

func (s *Store) userIndex(id int64) int {
	for i, u := range s.doc.Users {
		if u.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) nextUserIDLocked() int64 {
	highest := s.doc.Sequences.Users
	for _, u := range s.doc.Users {
		if u.ID > highest {
			highest = u.ID
		}
	}
	return highest + 1
}

// =============================================================================
// VALIDATION
// =============================================================================

// checkUser validates u and fills the default role.
func checkUser(u *leave.User) error {
	if u.Username == "" {
		return leave.ErrEmptyUsername
	}
	if u.Role == "" {
		u.Role = leave.RoleEmployee
	}
	if !u.Role.Valid() {
		return leave.ErrInvalidRole
	}
	if u.AnnualDays < 0 || u.CarryOverDays < 0 {
		return leave.ErrNegativeAllotment
	}
	return nil
}

func checkPatch(p leave.UserPatch) error {
	if p.Username != nil && *p.Username == "" {
		return leave.ErrEmptyUsername
	}
	if p.Role != nil && !p.Role.Valid() {
		return leave.ErrInvalidRole
	}
	if (p.AnnualDays != nil && *p.AnnualDays < 0) || (p.CarryOverDays != nil && *p.CarryOverDays < 0) {
		return leave.ErrNegativeAllotment
	}
	return nil
}

/*
Package leave holds the leave-tracker domain: entity records, the working-day
counter and the balance rule.

KEY CONCEPTS IN THIS FILE (types.go):
  - User: an employee or administrator with a yearly allotment
  - Request: an absence request with a snapshotted working-day count
  - Role, Category, Status: closed (or open, for Category) string enums
  - Setting keys: the flat settings map and its one load-bearing key

DESIGN PRINCIPLES:
  1. Plain data: records carry no behavior beyond small derived helpers
  2. Stable field names: JSON tags are the persisted document format
  3. Safe defaults: every field has a usable zero value when absent on disk

SEE ALSO:
  - balance.go: consumed/balance aggregation
  - workdays.go: working-day counting
  - store/jsondoc: the Document Store owning these records
*/
package leave

// =============================================================================
// ROLES
// =============================================================================

type Role string

const (
	RoleAdmin    Role = "Admin"
	RoleEmployee Role = "Employee"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleEmployee
}

// =============================================================================
// REQUEST CATEGORY & STATUS
// =============================================================================

// Category tags a request. Only CategoryVacation reduces the balance;
// callers may use any other tag.
type Category string

const (
	CategoryVacation Category = "Vacation"
	CategorySick     Category = "Sick"
)

type Status string

const (
	StatusPending   Status = "Pending"
	StatusApproved  Status = "Approved"
	StatusRejected  Status = "Rejected"
	StatusCancelled Status = "Cancelled"
)

// Valid reports whether s is one of the known request states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// =============================================================================
// RECORDS
// =============================================================================

// User is a persisted user record. Password holds a one-way hash, never the
// plaintext.
type User struct {
	ID            int64  `json:"id"`
	Username      string `json:"username"`
	FirstName     string `json:"first_name,omitempty"`
	LastName      string `json:"last_name,omitempty"`
	Password      string `json:"password"`
	Role          Role   `json:"role"`
	AnnualDays    int    `json:"annual_days"`
	CarryOverDays int    `json:"carry_over_days"`
	Email         string `json:"email,omitempty"`
}

// Allotment is the number of days available before any consumption.
func (u User) Allotment() int {
	return u.AnnualDays + u.CarryOverDays
}

// IsAdmin reports whether the user may approve and reject requests.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// Request is a persisted leave request.
//
// Name, WorkingDays and Period are snapshots taken when the request was
// created. Later edits to the owner's name, to Start/End or to the current
// period setting do not touch them.
type Request struct {
	ID          int64    `json:"id"`
	UserID      int64    `json:"user_id"`
	Name        string   `json:"name"`
	Start       string   `json:"start"`
	End         string   `json:"end"`
	WorkingDays int      `json:"working_days"`
	Category    Category `json:"category"`
	Status      Status   `json:"status"`
	Remark      string   `json:"remark,omitempty"`
	Period      string   `json:"period"`
}

// CountsAgainst reports whether the request consumes balance in period.
func (r Request) CountsAgainst(period string) bool {
	return r.Status == StatusApproved &&
		r.Category == CategoryVacation &&
		r.Period == period
}

// =============================================================================
// PATCHES - Partial updates (nil = leave unchanged)
// =============================================================================

type UserPatch struct {
	Username      *string
	FirstName     *string
	LastName      *string
	Password      *string
	Role          *Role
	AnnualDays    *int
	CarryOverDays *int
	Email         *string
}

// Apply merges the non-nil fields of p into u.
func (p UserPatch) Apply(u *User) {
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.Password != nil {
		u.Password = *p.Password
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.AnnualDays != nil {
		u.AnnualDays = *p.AnnualDays
	}
	if p.CarryOverDays != nil {
		u.CarryOverDays = *p.CarryOverDays
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
}

// RequestPatch never touches WorkingDays: the count is fixed at creation even
// when Start or End change.
type RequestPatch struct {
	Start    *string
	End      *string
	Category *Category
	Status   *Status
	Remark   *string
	Period   *string
}

// Apply merges the non-nil fields of p into r.
func (p RequestPatch) Apply(r *Request) {
	if p.Start != nil {
		r.Start = *p.Start
	}
	if p.End != nil {
		r.End = *p.End
	}
	if p.Category != nil {
		r.Category = *p.Category
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.Remark != nil {
		r.Remark = *p.Remark
	}
	if p.Period != nil {
		r.Period = *p.Period
	}
}

// SubmitInput is what an employee supplies when asking for leave. The store
// fills in the rest.
type SubmitInput struct {
	Start    string
	End      string
	Category Category
	Remark   string
}

// =============================================================================
// SETTINGS
// =============================================================================

const (
	SettingCurrentPeriod = "current_period"
	DefaultPeriod        = "P1"
)

// DefaultSettings returns the settings of a fresh document.
func DefaultSettings() map[string]string {
	return map[string]string{SettingCurrentPeriod: DefaultPeriod}
}

// =============================================================================
// DISPLAY NAME
// =============================================================================

// UnknownName is shown when a user has neither a full name nor a username.
const UnknownName = "Unknown"

// FullName returns "First Last" when both parts are set, otherwise the
// username, otherwise UnknownName.
func FullName(u User) string {
	if u.FirstName != "" && u.LastName != "" {
		return u.FirstName + " " + u.LastName
	}
	if u.Username != "" {
		return u.Username
	}
	return UnknownName
}

/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types keep the
  stored document format (leave.User, leave.Request) separate from the
  external contract. Password hashes never leave the server.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Users:
    UserDTO, CreateUserRequest, UpdateUserRequest
    LoginRequest, LoginResponse

  Leave requests:
    RequestDTO, SubmitRequestDTO, UpdateRequestRequest

  Balance:
    BalanceDTO

  Settings:
    SettingRequest

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - leave/types.go: Stored record types
*/
package api

import (
	"context"

	"github.com/warp/leave-tracker/leave"
	"github.com/warp/leave-tracker/store/jsondoc"
)

// DefaultAnnualDays is used when a new user is created without an allotment.
const DefaultAnnualDays = 30

// =============================================================================
// USERS
// =============================================================================

// UserDTO represents a user in API responses.
type UserDTO struct {
	ID            int64  `json:"id"`
	Username      string `json:"username"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	FullName      string `json:"full_name"`
	Role          string `json:"role"`
	AnnualDays    int    `json:"annual_days"`
	CarryOverDays int    `json:"carry_over_days"`
	Email         string `json:"email"`
	Balance       int    `json:"balance"`
}

// CreateUserRequest is the request to create a user.
type CreateUserRequest struct {
	Username      string `json:"username"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Password      string `json:"password"`
	Role          string `json:"role"`
	AnnualDays    *int   `json:"annual_days"`
	CarryOverDays int    `json:"carry_over_days"`
	Email         string `json:"email"`
}

// UpdateUserRequest carries a partial update. Absent fields are untouched.
type UpdateUserRequest struct {
	Username      *string `json:"username"`
	FirstName     *string `json:"first_name"`
	LastName      *string `json:"last_name"`
	Password      *string `json:"password"`
	Role          *string `json:"role"`
	AnnualDays    *int    `json:"annual_days"`
	CarryOverDays *int    `json:"carry_over_days"`
	Email         *string `json:"email"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the bearer token for later calls. Token is empty
// when authorization is disabled.
type LoginResponse struct {
	Token string  `json:"token,omitempty"`
	User  UserDTO `json:"user"`
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

// RequestDTO represents a leave request in API responses. Owner is the
// current full name of the owning user, or "Unknown" once that user is gone;
// Name is the snapshot taken at submission.
type RequestDTO struct {
	ID          int64  `json:"id"`
	UserID      int64  `json:"user_id"`
	Name        string `json:"name"`
	Owner       string `json:"owner"`
	Start       string `json:"start"`
	End         string `json:"end"`
	WorkingDays int    `json:"working_days"`
	Category    string `json:"category"`
	Status      string `json:"status"`
	Remark      string `json:"remark"`
	Period      string `json:"period"`
}

// SubmitRequestDTO is the body of POST /api/users/{id}/requests.
type SubmitRequestDTO struct {
	Start    string `json:"start"`
	End      string `json:"end"`
	Category string `json:"category"`
	Remark   string `json:"remark"`
}

// UpdateRequestRequest carries a partial update of a leave request.
// working_days is not accepted; it is fixed at submission.
type UpdateRequestRequest struct {
	Start    *string `json:"start"`
	End      *string `json:"end"`
	Category *string `json:"category"`
	Status   *string `json:"status"`
	Remark   *string `json:"remark"`
	Period   *string `json:"period"`
}

// =============================================================================
// BALANCE & SETTINGS
// =============================================================================

// BalanceDTO is the balance breakdown in the current period.
type BalanceDTO struct {
	UserID        int64  `json:"user_id"`
	Period        string `json:"period"`
	AnnualDays    int    `json:"annual_days"`
	CarryOverDays int    `json:"carry_over_days"`
	Allotment     int    `json:"allotment"`
	Consumed      int    `json:"consumed"`
	Balance       int    `json:"balance"`
}

// SettingRequest is the body of PUT /api/settings/{key}.
type SettingRequest struct {
	Value string `json:"value"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toUserDTO(ctx context.Context, u jsondoc.UserView) UserDTO {
	return UserDTO{
		ID:            u.ID,
		Username:      u.Username,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		FullName:      u.FullName(),
		Role:          string(u.Role),
		AnnualDays:    u.AnnualDays,
		CarryOverDays: u.CarryOverDays,
		Email:         u.Email,
		Balance:       u.Balance(ctx),
	}
}

// toRequestDTO resolves the owner on every call.
func toRequestDTO(ctx context.Context, r jsondoc.RequestView) (RequestDTO, error) {
	owner, err := r.Owner(ctx)
	if err != nil {
		return RequestDTO{}, err
	}
	name := leave.UnknownName
	if owner != nil {
		name = owner.FullName()
	}
	return RequestDTO{
		ID:          r.ID,
		UserID:      r.UserID,
		Name:        r.Name,
		Owner:       name,
		Start:       r.Start,
		End:         r.End,
		WorkingDays: r.WorkingDays,
		Category:    string(r.Category),
		Status:      string(r.Status),
		Remark:      r.Remark,
		Period:      r.Period,
	}, nil
}

func toBalanceDTO(s leave.BalanceSummary) BalanceDTO {
	return BalanceDTO{
		UserID:        s.UserID,
		Period:        s.Period,
		AnnualDays:    s.AnnualDays,
		CarryOverDays: s.CarryOverDays,
		Allotment:     s.AnnualDays + s.CarryOverDays,
		Consumed:      s.Consumed,
		Balance:       s.Balance,
	}
}

func (req UpdateUserRequest) patch() leave.UserPatch {
	p := leave.UserPatch{
		Username:      req.Username,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		AnnualDays:    req.AnnualDays,
		CarryOverDays: req.CarryOverDays,
		Email:         req.Email,
	}
	if req.Role != nil {
		role := leave.Role(*req.Role)
		p.Role = &role
	}
	return p
}

func (req UpdateRequestRequest) patch() leave.RequestPatch {
	p := leave.RequestPatch{
		Start:  req.Start,
		End:    req.End,
		Remark: req.Remark,
		Period: req.Period,
	}
	if req.Category != nil {
		c := leave.Category(*req.Category)
		p.Category = &c
	}
	if req.Status != nil {
		s := leave.Status(*req.Status)
		p.Status = &s
	}
	return p
}

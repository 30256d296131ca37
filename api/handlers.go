/*
handlers.go - HTTP API handlers for the leave tracker

PURPOSE:
  Exposes the document store via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the store and the leave domain.

ENDPOINTS:
  Users:
    GET    /api/users                     List all users with balance
    POST   /api/users                     Create user
    GET    /api/users/{id}                Get user details
    PATCH  /api/users/{id}                Partial update
    DELETE /api/users/{id}                Delete user and their requests
    GET    /api/users/{id}/balance        Balance breakdown
    GET    /api/users/{id}/requests       Requests of one user
    POST   /api/users/{id}/requests       Submit a leave request

  Requests:
    GET    /api/requests                  List all requests
    GET    /api/requests/{id}             Get one request
    PATCH  /api/requests/{id}             Partial update
    POST   /api/requests/{id}/approve     Status -> Approved
    POST   /api/requests/{id}/reject      Status -> Rejected
    POST   /api/requests/{id}/cancel      Status -> Cancelled
    GET    /api/requests/{id}/ics         Calendar event

  Settings:
    GET    /api/settings                  All settings
    PUT    /api/settings/{key}            Set one setting

  Auth:
    POST   /api/login                     Verify credentials

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 401: Bad credentials, missing or invalid token
  - 403: Wrong role, or another employee's data
  - 404: Resource not found
  - 409: Duplicate username
  - 500: Internal errors (document could not be written)

SECURITY NOTE:
  Login returns an HS256 bearer token. See server.go for which routes need
  which role.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/warp/leave-tracker/auth"
	"github.com/warp/leave-tracker/leave"
	"github.com/warp/leave-tracker/store/jsondoc"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store *jsondoc.Store
	Log   *zap.Logger

	// Tokens signs login tokens. Nil disables authorization.
	Tokens *auth.Tokens
}

// NewHandler creates a new handler with the given store. tokens may be nil.
func NewHandler(store *jsondoc.Store, log *zap.Logger, tokens *auth.Tokens) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Store: store, Log: log, Tokens: tokens}
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// =============================================================================
// USER HANDLERS
// =============================================================================

// ListUsers returns all users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	users, err := h.Store.ListUsers(ctx)
	if err != nil {
		h.fail(w, "Failed to list users", err)
		return
	}

	dtos := make([]UserDTO, len(users))
	for i, u := range users {
		dtos[i] = toUserDTO(ctx, u)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetUser returns a single user.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, ok := h.loadUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(r.Context(), *user))
}

// CreateUser creates a new user. Usernames are unique.
// POST /api/users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid password", err)
		return
	}

	hash, err := auth.Hash(req.Password)
	if err != nil {
		h.fail(w, "Failed to hash password", err)
		return
	}

	annual := DefaultAnnualDays
	if req.AnnualDays != nil {
		annual = *req.AnnualDays
	}

	id, err := h.Store.CreateUniqueUser(ctx, leave.User{
		Username:      req.Username,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Password:      hash,
		Role:          leave.Role(req.Role),
		AnnualDays:    annual,
		CarryOverDays: req.CarryOverDays,
		Email:         req.Email,
	})
	if err != nil {
		h.fail(w, "Failed to create user", err)
		return
	}

	user, err := h.Store.GetUserByID(ctx, id)
	if err != nil || user == nil {
		h.fail(w, "Failed to load created user", err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserDTO(ctx, *user))
}

// UpdateUser merges the given fields into a user. A new password is hashed
// before it is stored.
// PATCH /api/users/{id}
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	patch := req.patch()
	if req.Password != nil {
		if err := auth.ValidatePassword(*req.Password); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid password", err)
			return
		}
		hash, err := auth.Hash(*req.Password)
		if err != nil {
			h.fail(w, "Failed to hash password", err)
			return
		}
		patch.Password = &hash
	}

	matched, err := h.Store.UpdateUniqueUser(ctx, id, patch)
	if err != nil {
		h.fail(w, "Failed to update user", err)
		return
	}
	if !matched {
		writeError(w, http.StatusNotFound, "User not found", nil)
		return
	}

	user, err := h.Store.GetUserByID(ctx, id)
	if err != nil || user == nil {
		h.fail(w, "Failed to load updated user", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(ctx, *user))
}

// DeleteUser removes a user and every request they own.
// DELETE /api/users/{id}
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	matched, err := h.Store.DeleteUser(r.Context(), id)
	if err != nil {
		h.fail(w, "Failed to delete user", err)
		return
	}
	if !matched {
		writeError(w, http.StatusNotFound, "User not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

// GetBalance returns the balance breakdown for the current period.
// GET /api/users/{id}/balance
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	user, ok := h.loadUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTO(user.Summary(r.Context())))
}

// =============================================================================
// LEAVE REQUEST HANDLERS
// =============================================================================

// ListUserRequests returns the requests owned by one user.
// GET /api/users/{id}/requests
func (h *Handler) ListUserRequests(w http.ResponseWriter, r *http.Request) {
	user, ok := h.loadUser(w, r)
	if !ok {
		return
	}

	requests, err := h.Store.ListRequestsForUser(r.Context(), user.ID)
	if err != nil {
		h.fail(w, "Failed to list requests", err)
		return
	}
	h.writeRequests(w, r, requests)
}

// SubmitRequest creates a pending leave request for a user.
// POST /api/users/{id}/requests
func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := parseID(w, r)
	if !ok || !allowedFor(w, r, id) {
		return
	}

	var req SubmitRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	start, err := leave.ParseDate(req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start format (use YYYY-MM-DD)", err)
		return
	}
	end, err := leave.ParseDate(req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end format (use YYYY-MM-DD)", err)
		return
	}
	if end.Before(start) {
		writeError(w, http.StatusBadRequest, "End date is before start date", nil)
		return
	}
	if leave.SpanDays(start, end) > leave.MaxRequestDays {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Request spans more than %d days", leave.MaxRequestDays), nil)
		return
	}

	category := leave.Category(req.Category)
	if category == "" {
		category = leave.CategoryVacation
	}

	reqID, err := h.Store.SubmitRequest(ctx, id, leave.SubmitInput{
		Start:    req.Start,
		End:      req.End,
		Category: category,
		Remark:   req.Remark,
	})
	if err != nil {
		h.fail(w, "Failed to submit request", err)
		return
	}

	created, err := h.Store.GetRequestByID(ctx, reqID)
	if err != nil || created == nil {
		h.fail(w, "Failed to load submitted request", err)
		return
	}
	dto, err := toRequestDTO(ctx, *created)
	if err != nil {
		h.fail(w, "Failed to resolve owner", err)
		return
	}
	writeJSON(w, http.StatusCreated, dto)
}

// ListRequests returns every request. With ?status=Pending only requests
// in that status are returned.
// GET /api/requests
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.Store.ListRequests(r.Context())
	if err != nil {
		h.fail(w, "Failed to list requests", err)
		return
	}

	if status := r.URL.Query().Get("status"); status != "" {
		filtered := requests[:0:0]
		for _, req := range requests {
			if string(req.Status) == status {
				filtered = append(filtered, req)
			}
		}
		requests = filtered
	}
	h.writeRequests(w, r, requests)
}

// GetRequest returns a single request.
// GET /api/requests/{id}
func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	req, ok := h.loadRequest(w, r)
	if !ok {
		return
	}
	dto, err := toRequestDTO(r.Context(), *req)
	if err != nil {
		h.fail(w, "Failed to resolve owner", err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// UpdateRequest merges the given fields into a request. The working-day
// count keeps its submission value.
// PATCH /api/requests/{id}
func (h *Handler) UpdateRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var body UpdateRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	matched, err := h.Store.UpdateRequest(ctx, id, body.patch())
	if err != nil {
		h.fail(w, "Failed to update request", err)
		return
	}
	if !matched {
		writeError(w, http.StatusNotFound, "Request not found", nil)
		return
	}

	updated, err := h.Store.GetRequestByID(ctx, id)
	if err != nil || updated == nil {
		h.fail(w, "Failed to load updated request", err)
		return
	}
	dto, err := toRequestDTO(ctx, *updated)
	if err != nil {
		h.fail(w, "Failed to resolve owner", err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// ApproveRequest moves a request to Approved.
// POST /api/requests/{id}/approve
func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, leave.StatusApproved)
}

// RejectRequest moves a request to Rejected.
// POST /api/requests/{id}/reject
func (h *Handler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, leave.StatusRejected)
}

// CancelRequest moves a request to Cancelled.
// POST /api/requests/{id}/cancel
func (h *Handler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.loadRequest(w, r); !ok {
		return
	}
	h.setStatus(w, r, leave.StatusCancelled)
}

// GetRequestICS renders the request as an iCalendar all-day event.
// GET /api/requests/{id}/ics
func (h *Handler) GetRequestICS(w http.ResponseWriter, r *http.Request) {
	req, ok := h.loadRequest(w, r)
	if !ok {
		return
	}
	body, err := leave.ICS(req.Request, time.Now())
	if err != nil {
		h.fail(w, "Cannot render calendar event", err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("request-%d.ics", req.ID)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// =============================================================================
// SETTINGS & AUTH
// =============================================================================

// GetSettings returns all settings. The mail password is masked.
// GET /api/settings
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings := h.Store.AllSettings(r.Context())
	if settings[leave.SettingMailPassword] != "" {
		settings[leave.SettingMailPassword] = "********"
	}
	writeJSON(w, http.StatusOK, settings)
}

// PutSetting sets one setting.
// PUT /api/settings/{key}
func (h *Handler) PutSetting(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var req SettingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if key == leave.SettingCurrentPeriod && req.Value == "" {
		writeError(w, http.StatusBadRequest, "Period must not be empty", nil)
		return
	}

	if err := h.Store.SetSetting(r.Context(), key, req.Value); err != nil {
		h.fail(w, "Failed to save setting", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"key": key, "value": req.Value})
}

// Login verifies a username and password and returns a bearer token.
// Legacy pbkdf2 hashes are upgraded to bcrypt on success.
// POST /api/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	user, err := h.Store.GetUserByUsername(ctx, req.Username)
	if err != nil {
		h.fail(w, "Failed to look up user", err)
		return
	}
	if user == nil || !auth.Verify(user.Password, req.Password) {
		h.Log.Info("login failed", zap.String("username", req.Username))
		writeError(w, http.StatusUnauthorized, "Login failed", nil)
		return
	}

	if auth.NeedsRehash(user.Password) {
		if hash, err := auth.Hash(req.Password); err == nil {
			if _, err := h.Store.UpdateUser(ctx, user.ID, leave.UserPatch{Password: &hash}); err != nil {
				h.Log.Warn("password rehash failed", zap.Int64("user_id", user.ID), zap.Error(err))
			}
		}
	}

	resp := LoginResponse{User: toUserDTO(ctx, *user)}
	if h.Tokens != nil {
		token, err := h.Tokens.Issue(user.ID, string(user.Role))
		if err != nil {
			h.fail(w, "Failed to issue token", err)
			return
		}
		resp.Token = token
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request, status leave.Status) {
	ctx := r.Context()
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.Store.SetRequestStatus(ctx, id, status); err != nil {
		h.fail(w, "Failed to change request status", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": status})
}

func (h *Handler) writeRequests(w http.ResponseWriter, r *http.Request, requests []jsondoc.RequestView) {
	dtos := make([]RequestDTO, 0, len(requests))
	for _, req := range requests {
		dto, err := toRequestDTO(r.Context(), req)
		if err != nil {
			h.fail(w, "Failed to resolve owner", err)
			return
		}
		dtos = append(dtos, dto)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) loadUser(w http.ResponseWriter, r *http.Request) (*jsondoc.UserView, bool) {
	id, ok := parseID(w, r)
	if !ok || !allowedFor(w, r, id) {
		return nil, false
	}
	user, err := h.Store.GetUserByID(r.Context(), id)
	if err != nil {
		h.fail(w, "Failed to get user", err)
		return nil, false
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "User not found", nil)
		return nil, false
	}
	return user, true
}

func (h *Handler) loadRequest(w http.ResponseWriter, r *http.Request) (*jsondoc.RequestView, bool) {
	id, ok := parseID(w, r)
	if !ok {
		return nil, false
	}
	req, err := h.Store.GetRequestByID(r.Context(), id)
	if err != nil {
		h.fail(w, "Failed to get request", err)
		return nil, false
	}
	if req == nil {
		writeError(w, http.StatusNotFound, "Request not found", nil)
		return nil, false
	}
	if !allowedFor(w, r, req.UserID) {
		return nil, false
	}
	return req, true
}

// allowedFor writes 403 and returns false when the caller is an employee
// acting on another user's data.
func allowedFor(w http.ResponseWriter, r *http.Request, userID int64) bool {
	claims, ok := ClaimsFrom(r.Context())
	if !ok || claims.Role == string(leave.RoleAdmin) || claims.UserID == userID {
		return true
	}
	writeError(w, http.StatusForbidden, "Forbidden", nil)
	return false
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id", err)
		return 0, false
	}
	return id, true
}

// fail maps a domain error to its status code. Server-side failures are
// logged.
func (h *Handler) fail(w http.ResponseWriter, message string, err error) {
	switch {
	case leave.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case leave.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	case leave.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	default:
		if err == nil {
			err = errors.New("unexpected empty result")
		}
		h.Log.Error(message, zap.Error(err))
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

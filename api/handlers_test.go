/*
handlers_test.go - HTTP tests for the API handlers

Tests for:
- User creation, uniqueness, update, cascade delete
- Request submission, review transitions, owner resolution, ICS export
- Balance after approval and period switch
- Settings and login (including legacy hash upgrade)
*/
package api

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/pbkdf2"

	"github.com/warp/leave-tracker/leave"
	"github.com/warp/leave-tracker/store/jsondoc"
)

type testEnv struct {
	store  *jsondoc.Store
	router http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := jsondoc.Open(context.Background(), filepath.Join(t.TempDir(), "data.json"))
	require.NoError(t, err)
	return &testEnv{
		store:  store,
		router: NewRouter(NewHandler(store, nil, nil), RouterOptions{}),
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (e *testEnv) createUser(t *testing.T, username string) UserDTO {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/users", CreateUserRequest{
		Username:  username,
		FirstName: "Ada",
		LastName:  "Lovelace",
		Password:  "long enough",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[UserDTO](t, rec)
}

func (e *testEnv) submit(t *testing.T, userID int64, start, end string) RequestDTO {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/users/"+itoa(userID)+"/requests", SubmitRequestDTO{
		Start: start, End: end, Category: "Vacation",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[RequestDTO](t, rec)
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

func intPtr(n int) *int { return &n }

// =============================================================================
// USERS
// =============================================================================

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateUser(t *testing.T) {
	env := newTestEnv(t)

	u := env.createUser(t, "ada")
	assert.Equal(t, int64(1), u.ID)
	assert.Equal(t, "Ada Lovelace", u.FullName)
	assert.Equal(t, "Employee", u.Role)
	assert.Equal(t, DefaultAnnualDays, u.AnnualDays)
	assert.Equal(t, DefaultAnnualDays, u.Balance)

	stored, err := env.store.GetUserByID(context.Background(), u.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotEqual(t, "long enough", stored.Password, "password stored hashed")

	rec := env.do(t, http.MethodGet, "/api/users/1", nil)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestCreateUser_Validation(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "ada")

	tests := []struct {
		name string
		body CreateUserRequest
		want int
	}{
		{"duplicate username", CreateUserRequest{Username: "ada", Password: "long enough"}, http.StatusConflict},
		{"short password", CreateUserRequest{Username: "bob", Password: "short"}, http.StatusBadRequest},
		{"empty username", CreateUserRequest{Password: "long enough"}, http.StatusBadRequest},
		{"bad role", CreateUserRequest{Username: "bob", Password: "long enough", Role: "Boss"}, http.StatusBadRequest},
		{"negative annual days", CreateUserRequest{Username: "bob", Password: "long enough", AnnualDays: intPtr(-5)}, http.StatusBadRequest},
		{"negative carry-over", CreateUserRequest{Username: "bob", Password: "long enough", CarryOverDays: -3}, http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/users", tc.body)
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}

	users, err := env.store.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestGetUser_NotFoundAndBadID(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/users/42", nil).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/users/abc", nil).Code)
}

func TestUpdateUser(t *testing.T) {
	env := newTestEnv(t)
	u := env.createUser(t, "ada")
	env.createUser(t, "grace")

	rec := env.do(t, http.MethodPatch, "/api/users/1", map[string]any{"carry_over_days": 5, "email": "ada@example.com"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[UserDTO](t, rec)
	assert.Equal(t, 5, got.CarryOverDays)
	assert.Equal(t, "ada@example.com", got.Email)
	assert.Equal(t, "Ada Lovelace", got.FullName, "untouched fields kept")
	assert.Equal(t, DefaultAnnualDays+5, got.Balance)

	rec = env.do(t, http.MethodPatch, "/api/users/1", map[string]any{"username": "grace"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPatch, "/api/users/99", map[string]any{"email": "x@example.com"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPatch, "/api/users/1", map[string]any{"annual_days": -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	rec = env.do(t, http.MethodPatch, "/api/users/1", map[string]any{"carry_over_days": -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	before, err := env.store.GetUserByID(context.Background(), u.ID)
	require.NoError(t, err)
	rec = env.do(t, http.MethodPatch, "/api/users/1", map[string]any{"password": "another secret"})
	require.Equal(t, http.StatusOK, rec.Code)
	after, err := env.store.GetUserByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.NotEqual(t, before.Password, after.Password)
	assert.NotEqual(t, "another secret", after.Password)
}

func TestDeleteUser_Cascades(t *testing.T) {
	env := newTestEnv(t)
	ada := env.createUser(t, "ada")
	grace := env.createUser(t, "grace")
	env.submit(t, ada.ID, "2025-03-03", "2025-03-07")
	env.submit(t, ada.ID, "2025-04-01", "2025-04-01")
	kept := env.submit(t, grace.ID, "2025-05-05", "2025-05-06")

	rec := env.do(t, http.MethodDelete, "/api/users/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	list := decode[[]RequestDTO](t, env.do(t, http.MethodGet, "/api/requests", nil))
	require.Len(t, list, 1)
	assert.Equal(t, kept.ID, list[0].ID)

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodDelete, "/api/users/1", nil).Code)
}

// =============================================================================
// REQUESTS
// =============================================================================

func TestSubmitRequest(t *testing.T) {
	env := newTestEnv(t)
	u := env.createUser(t, "ada")

	got := env.submit(t, u.ID, "2025-03-03", "2025-03-09")
	assert.Equal(t, int64(1), got.ID)
	assert.Equal(t, u.ID, got.UserID)
	assert.Equal(t, "Ada Lovelace", got.Name)
	assert.Equal(t, "Ada Lovelace", got.Owner)
	assert.Equal(t, 5, got.WorkingDays, "weekend excluded")
	assert.Equal(t, "Pending", got.Status)
	assert.Equal(t, leave.DefaultPeriod, got.Period)
}

func TestSubmitRequest_Errors(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "ada")

	tests := []struct {
		name string
		path string
		body SubmitRequestDTO
		want int
	}{
		{"unknown user", "/api/users/9/requests", SubmitRequestDTO{Start: "2025-03-03", End: "2025-03-04"}, http.StatusNotFound},
		{"bad start", "/api/users/1/requests", SubmitRequestDTO{Start: "03/03/2025", End: "2025-03-04"}, http.StatusBadRequest},
		{"end before start", "/api/users/1/requests", SubmitRequestDTO{Start: "2025-03-04", End: "2025-03-03"}, http.StatusBadRequest},
		{"longer than a year", "/api/users/1/requests", SubmitRequestDTO{Start: "2025-01-01", End: "2026-01-02"}, http.StatusBadRequest},
		{"whole calendar range", "/api/users/1/requests", SubmitRequestDTO{Start: "0001-01-01", End: "9999-12-31"}, http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, tc.path, tc.body)
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
		})
	}

	// A full leap year is the longest accepted span
	full := env.submit(t, 1, "2024-01-01", "2024-12-31")
	assert.Equal(t, 262, full.WorkingDays)
}

func TestReviewTransitionsAndBalance(t *testing.T) {
	env := newTestEnv(t)
	u := env.createUser(t, "ada")
	first := env.submit(t, u.ID, "2025-03-03", "2025-03-07")
	second := env.submit(t, u.ID, "2025-03-10", "2025-03-11")

	rec := env.do(t, http.MethodPost, "/api/requests/"+itoa(first.ID)+"/approve", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = env.do(t, http.MethodPost, "/api/requests/"+itoa(second.ID)+"/reject", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	bal := decode[BalanceDTO](t, env.do(t, http.MethodGet, "/api/users/1/balance", nil))
	assert.Equal(t, 30, bal.Allotment)
	assert.Equal(t, 5, bal.Consumed)
	assert.Equal(t, 25, bal.Balance)
	assert.Equal(t, leave.DefaultPeriod, bal.Period)

	rec = env.do(t, http.MethodPost, "/api/requests/"+itoa(first.ID)+"/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	bal = decode[BalanceDTO](t, env.do(t, http.MethodGet, "/api/users/1/balance", nil))
	assert.Equal(t, 30, bal.Balance)

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodPost, "/api/requests/77/approve", nil).Code)
}

func TestListRequests_StatusFilter(t *testing.T) {
	env := newTestEnv(t)
	u := env.createUser(t, "ada")
	a := env.submit(t, u.ID, "2025-03-03", "2025-03-03")
	env.submit(t, u.ID, "2025-03-04", "2025-03-04")
	env.do(t, http.MethodPost, "/api/requests/"+itoa(a.ID)+"/approve", nil)

	pending := decode[[]RequestDTO](t, env.do(t, http.MethodGet, "/api/requests?status=Pending", nil))
	require.Len(t, pending, 1)
	assert.Equal(t, int64(2), pending[0].ID)

	mine := decode[[]RequestDTO](t, env.do(t, http.MethodGet, "/api/users/1/requests", nil))
	assert.Len(t, mine, 2)
}

func TestUpdateRequest(t *testing.T) {
	env := newTestEnv(t)
	u := env.createUser(t, "ada")
	r := env.submit(t, u.ID, "2025-03-03", "2025-03-07")

	rec := env.do(t, http.MethodPatch, "/api/requests/"+itoa(r.ID), map[string]any{"end": "2025-03-14", "remark": "longer trip"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[RequestDTO](t, rec)
	assert.Equal(t, "2025-03-14", got.End)
	assert.Equal(t, "longer trip", got.Remark)
	assert.Equal(t, 5, got.WorkingDays, "working days fixed at submission")

	rec = env.do(t, http.MethodPatch, "/api/requests/"+itoa(r.ID), map[string]any{"status": "Maybe"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPatch, "/api/requests/50", map[string]any{"remark": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetRequest_OrphanOwnerIsUnknown(t *testing.T) {
	env := newTestEnv(t)
	id, err := env.store.CreateRequest(context.Background(), leave.Request{
		UserID: 404, Name: "Ghost", Start: "2025-03-03", End: "2025-03-03", Category: leave.CategorySick,
	})
	require.NoError(t, err)

	got := decode[RequestDTO](t, env.do(t, http.MethodGet, "/api/requests/"+itoa(id), nil))
	assert.Equal(t, "Ghost", got.Name)
	assert.Equal(t, leave.UnknownName, got.Owner)
}

func TestGetRequestICS(t *testing.T) {
	env := newTestEnv(t)
	u := env.createUser(t, "ada")
	r := env.submit(t, u.ID, "2025-03-03", "2025-03-07")

	rec := env.do(t, http.MethodGet, "/api/requests/"+itoa(r.ID)+"/ics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/calendar"))
	body := rec.Body.String()
	assert.Contains(t, body, "DTSTART;VALUE=DATE:20250303")
	assert.Contains(t, body, "DTEND;VALUE=DATE:20250308")
	assert.Contains(t, body, "SUMMARY:Vacation: Ada Lovelace")
}

func TestGetRequestICS_EscapesUserText(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/users", CreateUserRequest{
		Username:  "eve",
		FirstName: "Eve\r\nATTENDEE:mailto:evil@example.com",
		LastName:  "Doe",
		Password:  "long enough",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	u := decode[UserDTO](t, rec)
	r := env.submit(t, u.ID, "2025-03-03", "2025-03-03")

	rec = env.do(t, http.MethodPatch, "/api/requests/"+itoa(r.ID), map[string]any{"category": "Vacation;X"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/requests/"+itoa(r.ID)+"/ics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.NotContains(t, body, "\nATTENDEE")
	assert.Contains(t, body, `Vacation\;X`)
	assert.Contains(t, body, `Eve\nATTENDEE`, "line break kept as an escaped \\n")
}

func TestGetRequestICS_UnparseableStart(t *testing.T) {
	env := newTestEnv(t)
	id, err := env.store.CreateRequest(context.Background(), leave.Request{UserID: 1, Start: "soon", End: "later"})
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/api/requests/"+itoa(id)+"/ics", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

// =============================================================================
// SETTINGS & LOGIN
// =============================================================================

func TestSettings_PeriodSwitch(t *testing.T) {
	env := newTestEnv(t)
	u := env.createUser(t, "ada")
	r := env.submit(t, u.ID, "2025-03-03", "2025-03-07")
	env.do(t, http.MethodPost, "/api/requests/"+itoa(r.ID)+"/approve", nil)

	rec := env.do(t, http.MethodPut, "/api/settings/current_period", SettingRequest{Value: "P2"})
	require.Equal(t, http.StatusOK, rec.Code)

	bal := decode[BalanceDTO](t, env.do(t, http.MethodGet, "/api/users/1/balance", nil))
	assert.Equal(t, "P2", bal.Period)
	assert.Equal(t, 0, bal.Consumed)
	assert.Equal(t, 30, bal.Balance)

	assert.Equal(t, http.StatusBadRequest,
		env.do(t, http.MethodPut, "/api/settings/current_period", SettingRequest{}).Code)
}

func TestGetSettings_MasksMailPassword(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPut, "/api/settings/password", SettingRequest{Value: "smtp-secret"})
	env.do(t, http.MethodPut, "/api/settings/mail_server", SettingRequest{Value: "smtp.example.com"})

	got := decode[map[string]string](t, env.do(t, http.MethodGet, "/api/settings", nil))
	assert.Equal(t, "smtp.example.com", got["mail_server"])
	assert.Equal(t, "********", got["password"])
	assert.Equal(t, leave.DefaultPeriod, got[leave.SettingCurrentPeriod])

	assert.Equal(t, "smtp-secret", env.store.MailConfig(context.Background()).Password)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "ada")

	rec := env.do(t, http.MethodPost, "/api/login", LoginRequest{Username: "ada", Password: "long enough"})
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[LoginResponse](t, rec)
	assert.Equal(t, "ada", got.User.Username)
	assert.Empty(t, got.Token, "no tokens configured")

	rec = env.do(t, http.MethodPost, "/api/login", LoginRequest{Username: "ada", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/login", LoginRequest{Username: "nobody", Password: "long enough"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogin_UpgradesLegacyHash(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	key := pbkdf2.Key([]byte("Admin123"), []byte("s4lt"), 1000, sha256.Size, sha256.New)
	legacy := "pbkdf2:sha256:1000$s4lt$" + hex.EncodeToString(key)
	id, err := env.store.CreateUser(ctx, leave.User{Username: "admin", Password: legacy, Role: leave.RoleAdmin})
	require.NoError(t, err)

	rec := env.do(t, http.MethodPost, "/api/login", LoginRequest{Username: "admin", Password: "Admin123"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	u, err := env.store.GetUserByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u.Password, "$2"), "rehashed with bcrypt")

	rec = env.do(t, http.MethodPost, "/api/login", LoginRequest{Username: "admin", Password: "Admin123"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/health", nil)

	rec := env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

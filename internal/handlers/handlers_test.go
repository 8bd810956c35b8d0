package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/skinwise/internal/backend"
	"github.com/example/skinwise/internal/config"
	"github.com/example/skinwise/internal/guard"
	"github.com/example/skinwise/internal/middleware"
	"github.com/example/skinwise/internal/models"
	"github.com/example/skinwise/internal/otp"
	"github.com/example/skinwise/internal/services"
	"github.com/example/skinwise/internal/session"
	"github.com/example/skinwise/internal/utils"
)

type fakeBackend struct {
	SendOTPFunc    func(ctx context.Context, phone, name string) error
	VerifyOTPFunc  func(ctx context.Context, phone, code string) (*models.OTPVerification, error)
	GetUserFunc    func(ctx context.Context, token, canonical string) (*models.User, error)
	VerifyAuthFunc func(ctx context.Context, token, canonical string) (*models.User, error)
	AllDataFunc    func(ctx context.Context, token, canonical string) (*models.UserData, error)
	UpdateUserFunc func(ctx context.Context, token, canonical string, update models.UserUpdate) (*models.User, error)
}

func (f *fakeBackend) SendOTP(ctx context.Context, phone, name string) error {
	if f.SendOTPFunc != nil {
		return f.SendOTPFunc(ctx, phone, name)
	}
	return nil
}

func (f *fakeBackend) VerifyOTP(ctx context.Context, phone, code string) (*models.OTPVerification, error) {
	if f.VerifyOTPFunc != nil {
		return f.VerifyOTPFunc(ctx, phone, code)
	}
	return &models.OTPVerification{Message: "User is Verified!!", Profile: false}, nil
}

func (f *fakeBackend) GetUser(ctx context.Context, token, canonical string) (*models.User, error) {
	if f.GetUserFunc != nil {
		return f.GetUserFunc(ctx, token, canonical)
	}
	return nil, &backend.APIError{Status: 404, Message: "User not found"}
}

func (f *fakeBackend) VerifyAuth(ctx context.Context, token, canonical string) (*models.User, error) {
	if f.VerifyAuthFunc != nil {
		return f.VerifyAuthFunc(ctx, token, canonical)
	}
	return &models.User{Contact: canonical}, nil
}

func (f *fakeBackend) GetUserWithAllData(ctx context.Context, token, canonical string) (*models.UserData, error) {
	if f.AllDataFunc != nil {
		return f.AllDataFunc(ctx, token, canonical)
	}
	return nil, &backend.APIError{Status: 500, Message: "not stubbed"}
}

func (f *fakeBackend) UpdateUser(ctx context.Context, token, canonical string, update models.UserUpdate) (*models.User, error) {
	if f.UpdateUserFunc != nil {
		return f.UpdateUserFunc(ctx, token, canonical, update)
	}
	return &models.User{Contact: canonical}, nil
}

type fakeLeads struct {
	leads []services.LeadNotification
}

func (f *fakeLeads) NotifyNewLead(lead services.LeadNotification) error {
	f.leads = append(f.leads, lead)
	return nil
}

type harness struct {
	app    *fiber.App
	fake   *fakeBackend
	leads  *fakeLeads
	flows  *otp.Registry
	device string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := &config.Config{JWTSecret: "test-secret", DeviceTTL: time.Hour}
	fake := &fakeBackend{}
	leads := &fakeLeads{}
	flows := otp.NewRegistry(0)
	manager := session.NewManager(session.NewMemoryBackend(0), session.NewMemoryBackend(0), nil)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(nil)})
	app.Use(middleware.Device(cfg), middleware.Session(manager))

	auth := NewAuthHandler(fake, flows, 30*time.Second, leads, nil)
	routes := NewRouteHandler(guard.New(fake, "/login", nil), nil)
	profile := NewProfileHandler(fake)

	app.Get("/api/contact/normalize", NormalizeContact)
	app.Post("/api/auth/otp/send", auth.SendOTP)
	app.Post("/api/auth/otp/verify", auth.VerifyOTP)
	app.Get("/api/auth/otp", auth.Status)
	app.Post("/api/auth/logout", auth.Logout)
	app.Get("/api/route/:mobile", routes.Onboarding)
	app.Get("/api/dashboard/:mobile", routes.Dashboard)
	app.Patch("/api/profile", middleware.RequireVerified(), profile.UpdateProfile)
	app.Get("/api/profile/progress", middleware.RequireVerified(), profile.Progress)

	device, err := utils.GenerateDeviceToken(cfg.JWTSecret, uuid.New(), time.Hour)
	require.NoError(t, err)

	return &harness{app: app, fake: fake, leads: leads, flows: flows, device: device}
}

type envelope struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (h *harness) do(t *testing.T, method, target, tab string, body any) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: middleware.DeviceCookie, Value: h.device})
	if tab != "" {
		req.Header.Set(middleware.TabHeader, tab)
	}

	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestNormalizeContactEndpoint(t *testing.T) {
	h := newHarness(t)

	status, env := h.do(t, http.MethodGet, "/api/contact/normalize?phone=98765%2043210", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	data := decode[map[string]any](t, env.Data)
	assert.Equal(t, "+919876543210", data["canonical"])
	assert.Equal(t, "9876543210", data["local"])
	assert.Equal(t, "919876543210", data["digits"])
	assert.Equal(t, true, data["valid"])

	status, env = h.do(t, http.MethodGet, "/api/contact/normalize?phone=abc", "", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.False(t, env.Success)
	assert.Equal(t, "phone must contain digits", env.Error)
}

func TestOTPRequiresTab(t *testing.T) {
	h := newHarness(t)

	status, env := h.do(t, http.MethodPost, "/api/auth/otp/send", "", map[string]string{"phone": "9876543210"})

	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, env.Error, middleware.TabHeader)
}

func TestExistingUserLoginThenDashboard(t *testing.T) {
	h := newHarness(t)
	h.fake.VerifyOTPFunc = func(_ context.Context, phone, code string) (*models.OTPVerification, error) {
		assert.Equal(t, "+919876543210", phone)
		assert.Equal(t, "4321", code)
		return &models.OTPVerification{Message: "User is Verified!!", Profile: true, Token: "abc"}, nil
	}

	status, env := h.do(t, http.MethodPost, "/api/auth/otp/send", "tab-1", map[string]string{"phone": "98765 43210", "name": "Asha"})
	require.Equal(t, fiber.StatusOK, status, env.Error)
	sent := decode[map[string]any](t, env.Data)
	assert.Equal(t, "awaiting_code", sent["state"])
	assert.Equal(t, float64(30), sent["cooldown_remaining"])
	assert.Equal(t, false, sent["can_resend"])

	status, env = h.do(t, http.MethodPost, "/api/auth/otp/send", "tab-1", map[string]string{"phone": "9876543210"})
	assert.Equal(t, fiber.StatusTooManyRequests, status)

	status, env = h.do(t, http.MethodPost, "/api/auth/otp/verify", "tab-1", map[string]string{"code": "4321"})
	require.Equal(t, fiber.StatusOK, status, env.Error)
	verified := decode[map[string]string](t, env.Data)
	assert.Equal(t, "existing", verified["outcome"])
	assert.Equal(t, "/dashboard/9876543210", verified["redirect"])
	assert.Equal(t, 0, h.flows.Len())
	assert.Empty(t, h.leads.leads)

	var tokens []string
	h.fake.AllDataFunc = func(_ context.Context, token, canonical string) (*models.UserData, error) {
		tokens = append(tokens, token)
		prescriptions := make([]models.Prescription, 3)
		return &models.UserData{
			User:          &models.User{FirstName: "Asha", Contact: canonical, ShopifyUserID: "gid://shopify/Customer/1"},
			Prescriptions: prescriptions,
		}, nil
	}

	status, env = h.do(t, http.MethodGet, "/api/dashboard/9876543210?limit=2&page=2", "tab-1", nil)
	require.Equal(t, fiber.StatusOK, status, env.Error)
	dash := decode[struct {
		Prescriptions []models.Prescription `json:"prescriptions"`
		Conversations []models.Conversation `json:"conversations"`
		Pagination    map[string]int        `json:"pagination"`
	}](t, env.Data)
	assert.Len(t, dash.Prescriptions, 1)
	assert.NotNil(t, dash.Conversations)
	assert.Equal(t, 3, dash.Pagination["total_items"])
	assert.Equal(t, []string{"abc"}, tokens)
}

func TestNewUserLoginNotifiesLead(t *testing.T) {
	h := newHarness(t)

	_, _ = h.do(t, http.MethodPost, "/api/auth/otp/send", "tab-1", map[string]string{"phone": "+919876543210", "name": "Asha"})
	status, env := h.do(t, http.MethodPost, "/api/auth/otp/verify", "tab-1", map[string]string{"code": "1111"})

	require.Equal(t, fiber.StatusOK, status, env.Error)
	verified := decode[map[string]string](t, env.Data)
	assert.Equal(t, "new", verified["outcome"])
	assert.Equal(t, "/9876543210", verified["redirect"])
	require.Len(t, h.leads.leads, 1)
	assert.Equal(t, "Asha", h.leads.leads[0].Name)
	assert.Equal(t, "+919876543210", h.leads.leads[0].Contact)
}

func TestVerifyErrors(t *testing.T) {
	h := newHarness(t)

	status, _ := h.do(t, http.MethodPost, "/api/auth/otp/verify", "tab-1", map[string]string{"code": "1234"})
	assert.Equal(t, fiber.StatusConflict, status, "no challenge yet")

	_, _ = h.do(t, http.MethodPost, "/api/auth/otp/send", "tab-1", map[string]string{"phone": "9876543210"})

	status, env := h.do(t, http.MethodPost, "/api/auth/otp/verify", "tab-1", map[string]string{"code": "12a4"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, backend.ErrInvalidCode.Error(), env.Error)

	h.fake.VerifyOTPFunc = func(context.Context, string, string) (*models.OTPVerification, error) {
		return nil, &backend.VerificationError{Message: "Wrong code"}
	}
	status, env = h.do(t, http.MethodPost, "/api/auth/otp/verify", "tab-1", map[string]string{"code": "1234"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Wrong code", env.Error)

	status, env = h.do(t, http.MethodGet, "/api/auth/otp", "tab-1", nil)
	require.Equal(t, fiber.StatusOK, status)
	state := decode[map[string]any](t, env.Data)
	assert.Equal(t, "failed", state["state"])
	assert.Equal(t, "Wrong code", state["error"])
	assert.Equal(t, "+919876543210", state["contact"])
}

func TestSendFailureSurfacesBackendMessage(t *testing.T) {
	h := newHarness(t)
	h.fake.SendOTPFunc = func(context.Context, string, string) error {
		return &backend.APIError{Status: 500, Message: "whatsapp unavailable"}
	}

	status, env := h.do(t, http.MethodPost, "/api/auth/otp/send", "tab-1", map[string]string{"phone": "9876543210"})

	assert.Equal(t, fiber.StatusBadGateway, status)
	assert.Equal(t, "whatsapp unavailable", env.Error)
}

func TestStatusWithoutFlowIsIdle(t *testing.T) {
	h := newHarness(t)

	status, env := h.do(t, http.MethodGet, "/api/auth/otp", "tab-9", nil)

	require.Equal(t, fiber.StatusOK, status)
	state := decode[map[string]any](t, env.Data)
	assert.Equal(t, "idle", state["state"])
	assert.Equal(t, true, state["can_resend"])
}

func TestRouteWithoutCredentialShowsOnboarding(t *testing.T) {
	h := newHarness(t)
	h.fake.GetUserFunc = func(context.Context, string, string) (*models.User, error) {
		return &models.User{FirstName: "Asha"}, nil
	}

	status, env := h.do(t, http.MethodGet, "/api/route/9876543210", "tab-1", nil)

	require.Equal(t, fiber.StatusOK, status)
	d := decode[map[string]any](t, env.Data)
	assert.Equal(t, "onboarding", d["kind"])
	assert.Equal(t, "Asha", d["display_name"])
	assert.Equal(t, "/9876543210", d["redirect"])
}

func TestProfileRequiresVerification(t *testing.T) {
	h := newHarness(t)

	status, env := h.do(t, http.MethodPatch, "/api/profile", "tab-1", map[string]string{"first_name": "Asha"})

	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.False(t, env.Success)
}

func TestProfileUpdateAndProgress(t *testing.T) {
	h := newHarness(t)
	h.fake.VerifyOTPFunc = func(context.Context, string, string) (*models.OTPVerification, error) {
		return &models.OTPVerification{Message: "verified", Profile: true, Token: "abc"}, nil
	}
	_, _ = h.do(t, http.MethodPost, "/api/auth/otp/send", "tab-1", map[string]string{"phone": "9876543210"})
	status, _ := h.do(t, http.MethodPost, "/api/auth/otp/verify", "tab-1", map[string]string{"code": "1234"})
	require.Equal(t, fiber.StatusOK, status)

	var got models.UserUpdate
	h.fake.UpdateUserFunc = func(_ context.Context, token, canonical string, update models.UserUpdate) (*models.User, error) {
		assert.Equal(t, "abc", token)
		assert.Equal(t, "+919876543210", canonical)
		got = update
		return &models.User{Contact: canonical, FirstName: *update.FirstName, Addresses: update.Addresses}, nil
	}

	body := map[string]any{
		"first_name": "Asha",
		"addresses":  []map[string]string{{"line1": " 1 MG Road ", "city": "Pune", "state": "MH", "pincode": "411001"}},
	}
	status, env := h.do(t, http.MethodPatch, "/api/profile", "tab-1", body)
	require.Equal(t, fiber.StatusOK, status, env.Error)
	require.Len(t, got.Addresses, 1)
	assert.Equal(t, "1 MG Road", got.Addresses[0].Line1)
	assert.True(t, got.Addresses[0].IsDefault)

	body["addresses"] = []map[string]string{{"line1": "x", "city": "Pune", "state": "MH", "pincode": "12"}}
	status, env = h.do(t, http.MethodPatch, "/api/profile", "tab-1", body)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "pincode must be 6 digits", env.Error)

	h.fake.AllDataFunc = func(_ context.Context, _, canonical string) (*models.UserData, error) {
		return &models.UserData{User: &models.User{Contact: canonical, ImageUploaded: true}}, nil
	}
	status, env = h.do(t, http.MethodGet, "/api/profile/progress", "tab-1", nil)
	require.Equal(t, fiber.StatusOK, status, env.Error)
	progress := decode[map[string]any](t, env.Data)
	assert.Equal(t, "address", progress["step"])
	assert.Equal(t, false, progress["dashboard"])
}

func TestNewUserCanUpdateProfileDuringOnboarding(t *testing.T) {
	h := newHarness(t)
	_, _ = h.do(t, http.MethodPost, "/api/auth/otp/send", "tab-1", map[string]string{"phone": "9876543210", "name": "Asha"})
	status, env := h.do(t, http.MethodPost, "/api/auth/otp/verify", "tab-1", map[string]string{"code": "1234"})
	require.Equal(t, fiber.StatusOK, status, env.Error)
	assert.Equal(t, "new", decode[map[string]any](t, env.Data)["outcome"])

	var updates int
	h.fake.UpdateUserFunc = func(_ context.Context, token, canonical string, update models.UserUpdate) (*models.User, error) {
		updates++
		assert.Equal(t, "", token)
		assert.Equal(t, "+919876543210", canonical)
		return &models.User{Contact: canonical, Addresses: update.Addresses}, nil
	}
	h.fake.VerifyAuthFunc = func(context.Context, string, string) (*models.User, error) {
		t.Error("no credential is stored, so nothing should be re-checked")
		return nil, backend.ErrNoCredential
	}

	body := map[string]any{
		"addresses": []map[string]string{{"line1": "1 MG Road", "city": "Pune", "state": "MH", "pincode": "411001"}},
	}
	status, env = h.do(t, http.MethodPatch, "/api/profile", "tab-1", body)
	require.Equal(t, fiber.StatusOK, status, env.Error)
	assert.Equal(t, 1, updates)

	// Another tab on the same device never verified anything.
	status, _ = h.do(t, http.MethodPatch, "/api/profile", "tab-2", body)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	// Browsing to another number moves the tab contact, but it was never verified.
	status, _ = h.do(t, http.MethodGet, "/api/route/9000000001", "tab-1", nil)
	require.Equal(t, fiber.StatusOK, status)
	status, env = h.do(t, http.MethodPatch, "/api/profile", "tab-1", body)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, backend.ErrContactMismatch.Error(), env.Error)
	assert.Equal(t, 1, updates)
}

func TestProfileAfterMismatchedRouteKeepsVerifiedContact(t *testing.T) {
	h := newHarness(t)
	h.fake.VerifyOTPFunc = func(context.Context, string, string) (*models.OTPVerification, error) {
		return &models.OTPVerification{Message: "verified", Profile: true, Token: "abc"}, nil
	}
	h.fake.VerifyAuthFunc = func(_ context.Context, token, canonical string) (*models.User, error) {
		if token != "abc" || canonical != "+919876543210" {
			return nil, backend.ErrContactMismatch
		}
		return &models.User{Contact: canonical}, nil
	}
	_, _ = h.do(t, http.MethodPost, "/api/auth/otp/send", "tab-1", map[string]string{"phone": "9876543210"})
	status, _ := h.do(t, http.MethodPost, "/api/auth/otp/verify", "tab-1", map[string]string{"code": "1234"})
	require.Equal(t, fiber.StatusOK, status)

	status, env := h.do(t, http.MethodGet, "/api/route/9000000001", "tab-1", nil)
	require.Equal(t, fiber.StatusOK, status)
	d := decode[map[string]any](t, env.Data)
	assert.Equal(t, "onboarding", d["kind"])
	assert.Equal(t, false, d["authenticated"])

	var contacts []string
	h.fake.UpdateUserFunc = func(_ context.Context, token, canonical string, update models.UserUpdate) (*models.User, error) {
		assert.Equal(t, "abc", token)
		contacts = append(contacts, canonical)
		return &models.User{Contact: canonical}, nil
	}
	status, env = h.do(t, http.MethodPatch, "/api/profile", "tab-1", map[string]string{"first_name": "Asha"})
	require.Equal(t, fiber.StatusOK, status, env.Error)
	assert.Equal(t, []string{"+919876543210"}, contacts)

	// The credential no longer matches the tab contact at all.
	h.fake.VerifyAuthFunc = func(context.Context, string, string) (*models.User, error) {
		return nil, backend.ErrContactMismatch
	}
	status, env = h.do(t, http.MethodPatch, "/api/profile", "tab-1", map[string]string{"first_name": "Asha"})
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, backend.ErrContactMismatch.Error(), env.Error)
	status, _ = h.do(t, http.MethodGet, "/api/profile/progress", "tab-1", nil)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, []string{"+919876543210"}, contacts)
}

func TestLogoutClearsSession(t *testing.T) {
	h := newHarness(t)
	h.fake.VerifyOTPFunc = func(context.Context, string, string) (*models.OTPVerification, error) {
		return &models.OTPVerification{Message: "verified", Profile: true, Token: "abc"}, nil
	}
	_, _ = h.do(t, http.MethodPost, "/api/auth/otp/send", "tab-1", map[string]string{"phone": "9876543210"})
	_, _ = h.do(t, http.MethodPost, "/api/auth/otp/verify", "tab-1", map[string]string{"code": "1234"})

	status, env := h.do(t, http.MethodPost, "/api/auth/logout", "tab-1", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.True(t, env.Success)

	status, _ = h.do(t, http.MethodGet, "/api/profile/progress", "tab-1", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

// Package guard decides what a protected page shows: the login/contact entry,
// the onboarding wizard, or the dashboard.
package guard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/example/skinwise/internal/backend"
	"github.com/example/skinwise/internal/contact"
	"github.com/example/skinwise/internal/models"
	"github.com/example/skinwise/internal/onboarding"
)

// Kind is the outcome of a route check.
type Kind int

const (
	Checking Kind = iota
	ShowLogin
	ShowOnboarding
	ShowDashboard
	ShowError
)

func (k Kind) String() string {
	switch k {
	case Checking:
		return "checking"
	case ShowLogin:
		return "login"
	case ShowOnboarding:
		return "onboarding"
	case ShowDashboard:
		return "dashboard"
	case ShowError:
		return "error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MarshalText renders the kind by name in JSON responses.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Route identifies which page is being guarded.
type Route int

const (
	// RouteOnboarding is the /{mobile} page.
	RouteOnboarding Route = iota
	// RouteDashboard is the /dashboard/{mobile} page.
	RouteDashboard
)

const displayNameLookupTimeout = 3 * time.Second

// Backend is the subset of the remote API the guard needs.
type Backend interface {
	GetUser(ctx context.Context, token, canonical string) (*models.User, error)
	VerifyAuth(ctx context.Context, token, canonical string) (*models.User, error)
	GetUserWithAllData(ctx context.Context, token, canonical string) (*models.UserData, error)
}

// Credentials exposes the stored credential.
type Credentials interface {
	Token() string
}

// Request describes the page being loaded.
type Request struct {
	Mobile string
	Route  Route
}

// Decision is what the page should render. Redirect is the path the client
// should be on for Kind; Fallback is set for ShowError. Authenticated reports
// that the stored credential was confirmed to belong to Contact.
type Decision struct {
	Kind          Kind             `json:"kind"`
	Contact       string           `json:"contact,omitempty"`
	DisplayName   string           `json:"display_name,omitempty"`
	Message       string           `json:"message,omitempty"`
	Redirect      string           `json:"redirect,omitempty"`
	Fallback      Kind             `json:"fallback,omitempty"`
	Step          onboarding.Step  `json:"step,omitempty"`
	Authenticated bool             `json:"authenticated"`
	User          *models.User     `json:"-"`
	Data          *models.UserData `json:"-"`
}

// Guard resolves route decisions.
type Guard struct {
	backend    Backend
	loginRoute string
	logger     *zap.Logger
}

// New builds a Guard. loginRoute is where users without dashboard access are sent.
func New(b Backend, loginRoute string, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loginRoute == "" {
		loginRoute = "/login"
	}
	return &Guard{backend: b, loginRoute: loginRoute, logger: logger}
}

// Resolve runs the route check. It never fails: unexpected errors and panics
// come back as ShowError with onboarding as the fallback.
func (g *Guard) Resolve(ctx context.Context, creds Credentials, req Request) (d Decision) {
	canonical := contact.Normalize(req.Mobile)
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("route guard panicked", zap.Any("panic", r))
			d = g.unexpected(req, canonical, fmt.Errorf("%v", r))
		}
	}()

	d = g.resolve(ctx, creds, req, canonical)
	g.logger.Debug("route decision",
		zap.Stringer("kind", d.Kind),
		zap.String("redirect", d.Redirect),
		zap.String("message", d.Message))
	return d
}

func (g *Guard) resolve(ctx context.Context, creds Credentials, req Request, canonical string) Decision {
	if canonical == "" {
		return Decision{Kind: ShowLogin, Message: "Please enter a valid mobile number.", Redirect: g.loginRoute}
	}

	var token string
	if creds != nil {
		token = creds.Token()
	}

	if token == "" {
		return g.onboardingFor(req, canonical, g.lookupDisplayName(ctx, canonical), "", onboarding.StepVerify)
	}

	authUser, err := g.backend.VerifyAuth(ctx, token, canonical)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return g.unexpected(req, canonical, ctxErr)
	}
	if err != nil {
		if errors.Is(err, backend.ErrContactMismatch) {
			g.logger.Warn("credential does not match route contact")
		}
		return g.onboardingFor(req, canonical, "", err.Error(), onboarding.StepVerify)
	}

	d := g.resolveAuthenticated(ctx, req, canonical, token, authUser)
	d.Authenticated = d.Kind != ShowError
	return d
}

// resolveAuthenticated picks the page once the credential is known to belong to canonical.
func (g *Guard) resolveAuthenticated(ctx context.Context, req Request, canonical, token string, authUser *models.User) Decision {
	data, err := g.backend.GetUserWithAllData(ctx, token, canonical)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return g.unexpected(req, canonical, ctxErr)
	}
	if err != nil || data == nil || data.User == nil {
		msg := ""
		if err != nil {
			msg = err.Error()
		}
		return g.onboardingFor(req, canonical, authUser.DisplayName(), msg, onboarding.NextStep(authUser, nil, true))
	}

	user := data.User
	if !onboarding.IsOnboarded(user, data) {
		if req.Route == RouteDashboard {
			// The dashboard page only renders when both gates pass.
			return Decision{
				Kind:        ShowLogin,
				Contact:     canonical,
				DisplayName: user.DisplayName(),
				Message:     "Finish onboarding to open your dashboard.",
				Redirect:    g.loginRoute,
				Step:        onboarding.NextStep(user, data, true),
			}
		}
		d := g.onboardingFor(req, canonical, user.DisplayName(), "", onboarding.NextStep(user, data, true))
		d.User = user
		d.Data = data
		return d
	}

	if !onboarding.HasDashboardAccess(user) {
		return Decision{
			Kind:        ShowLogin,
			Contact:     canonical,
			DisplayName: user.DisplayName(),
			Message:     "Complete your first order to unlock the dashboard.",
			Redirect:    g.loginRoute,
		}
	}

	return Decision{
		Kind:        ShowDashboard,
		Contact:     canonical,
		DisplayName: user.DisplayName(),
		Redirect:    dashboardPath(req.Mobile),
		Step:        onboarding.StepComplete,
		User:        user,
		Data:        data,
	}
}

// lookupDisplayName pre-fills the wizard greeting. Failures are ignored.
func (g *Guard) lookupDisplayName(ctx context.Context, canonical string) string {
	ctx, cancel := context.WithTimeout(ctx, displayNameLookupTimeout)
	defer cancel()

	user, err := g.backend.GetUser(ctx, "", canonical)
	if err != nil || user == nil {
		return ""
	}
	return user.DisplayName()
}

func (g *Guard) onboardingFor(req Request, canonical, name, msg string, step onboarding.Step) Decision {
	return Decision{
		Kind:        ShowOnboarding,
		Contact:     canonical,
		DisplayName: name,
		Message:     msg,
		Redirect:    onboardingPath(req.Mobile),
		Step:        step,
	}
}

func (g *Guard) unexpected(req Request, canonical string, err error) Decision {
	return Decision{
		Kind:     ShowError,
		Contact:  canonical,
		Message:  err.Error(),
		Redirect: onboardingPath(req.Mobile),
		Fallback: ShowOnboarding,
		Step:     onboarding.StepVerify,
	}
}

// AdoptsContact reports whether the caller may remember d.Contact as the
// contact being viewed. A stored credential that was not confirmed for the
// contact never moves the remembered contact.
func AdoptsContact(d Decision, hasCredential bool) bool {
	if d.Contact == "" || (d.Kind != ShowOnboarding && d.Kind != ShowDashboard) {
		return false
	}
	return !hasCredential || d.Authenticated
}

func onboardingPath(mobile string) string {
	return "/" + contact.Local(mobile)
}

func dashboardPath(mobile string) string {
	return "/dashboard/" + contact.Local(mobile)
}

// Package otp drives the WhatsApp one-time-password login: sending the
// challenge, the resend cooldown, collecting the 4-digit code and turning the
// verification response into a session.
package otp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/example/skinwise/internal/backend"
	"github.com/example/skinwise/internal/contact"
	"github.com/example/skinwise/internal/models"
)

var (
	// ErrBusy is returned while a send or verify request is in flight.
	ErrBusy = errors.New("a request is already in progress")
	// ErrNoChallenge is returned when verifying before a code was sent.
	ErrNoChallenge = errors.New("request a code first")
	// ErrCooldown is returned when resending before the cooldown elapsed.
	ErrCooldown = errors.New("please wait before requesting another code")
	// ErrAlreadyVerified is returned for any action after a successful verification.
	ErrAlreadyVerified = errors.New("already verified")
	// ErrMissingToken is returned when an existing user is verified without a credential.
	ErrMissingToken = errors.New("verification succeeded but no session was issued")
)

// Client is the subset of the backend used by the flow.
type Client interface {
	SendOTP(ctx context.Context, phone, name string) error
	VerifyOTP(ctx context.Context, phone, code string) (*models.OTPVerification, error)
}

// Persister receives the credential and contact after verification.
type Persister interface {
	SetToken(token string) error
	SetContact(contact string) error
}

// Option configures a Flow.
type Option func(*Flow)

// WithClock replaces the cooldown time source.
func WithClock(now func() time.Time) Option {
	return func(f *Flow) {
		f.cooldown = NewCooldown(f.cooldown.period, now)
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(f *Flow) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// Flow is one user's OTP login attempt. It is safe for concurrent use; requests
// that would overlap an in-flight call fail with ErrBusy.
type Flow struct {
	mu       sync.Mutex
	client   Client
	store    Persister
	cooldown *Cooldown
	entry    CodeEntry
	state    State
	logger   *zap.Logger
}

// NewFlow builds a Flow in the Idle state.
func NewFlow(client Client, store Persister, resendCooldown time.Duration, opts ...Option) *Flow {
	if resendCooldown <= 0 {
		resendCooldown = DefaultResendCooldown
	}
	f := &Flow{
		client:   client,
		store:    store,
		cooldown: NewCooldown(resendCooldown, nil),
		state:    Idle{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// State returns the current state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// CooldownRemaining returns the seconds until resend is enabled.
func (f *Flow) CooldownRemaining() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cooldown.Remaining()
}

// CanResend reports whether Send would be accepted right now.
func (f *Flow) CanResend() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.state.(type) {
	case Sending, Verifying, Verified:
		return false
	}
	return f.cooldown.Ready()
}

// Send requests a code for phone. name is shown in the WhatsApp message.
func (f *Flow) Send(ctx context.Context, phone, name string) error {
	canonical := contact.Normalize(phone)

	f.mu.Lock()
	prev := f.state
	switch prev.(type) {
	case Sending, Verifying:
		f.mu.Unlock()
		return ErrBusy
	case Verified:
		f.mu.Unlock()
		return ErrAlreadyVerified
	}
	if !f.cooldown.Ready() {
		f.mu.Unlock()
		return ErrCooldown
	}
	if len(contact.Digits(canonical)) < 10 {
		f.mu.Unlock()
		return backend.ErrInvalidPhone
	}
	f.state = Sending{Contact: canonical}
	f.mu.Unlock()

	err := f.client.SendOTP(ctx, canonical, name)

	f.mu.Lock()
	defer f.mu.Unlock()
	if ctxErr := ctx.Err(); ctxErr != nil {
		f.state = prev
		return ctxErr
	}
	if err != nil {
		f.state = prev
		f.logger.Info("otp send failed", zap.String("contact", mask(canonical)), zap.Error(err))
		return err
	}

	f.state = AwaitingCode{Contact: canonical, Name: name}
	f.entry.Clear()
	f.cooldown.Start()
	f.logger.Info("otp sent", zap.String("contact", mask(canonical)))
	return nil
}

// Input types one character into the code entry and reports whether the code is complete.
func (f *Flow) Input(r rune) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entry.Input(r)
}

// Backspace deletes in the code entry.
func (f *Flow) Backspace() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entry.Backspace()
}

// Paste pastes into the code entry and reports whether the code is complete.
func (f *Flow) Paste(s string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entry.Paste(s)
}

// SetFocus moves the code entry focus.
func (f *Flow) SetFocus(i int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entry.SetFocus(i)
}

// Entry returns a snapshot of the code entry.
func (f *Flow) Entry() CodeEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entry
}

// Submit verifies whatever is currently in the code entry.
func (f *Flow) Submit(ctx context.Context) (Outcome, error) {
	f.mu.Lock()
	code := f.entry.Code()
	f.mu.Unlock()
	return f.Verify(ctx, code)
}

// Verify checks code against the pending challenge and persists the session on success.
func (f *Flow) Verify(ctx context.Context, code string) (Outcome, error) {
	f.mu.Lock()
	prev := f.state
	switch prev.(type) {
	case Sending, Verifying:
		f.mu.Unlock()
		return 0, ErrBusy
	case Verified:
		f.mu.Unlock()
		return 0, ErrAlreadyVerified
	}
	canonical, name, ok := ChallengeOf(prev)
	if !ok {
		f.mu.Unlock()
		return 0, ErrNoChallenge
	}
	if err := backend.ValidateCode(code); err != nil {
		f.failLocked(canonical, name, err)
		f.mu.Unlock()
		return 0, err
	}
	f.state = Verifying{Contact: canonical, Name: name}
	f.mu.Unlock()

	result, err := f.client.VerifyOTP(ctx, canonical, code)

	f.mu.Lock()
	defer f.mu.Unlock()
	if ctxErr := ctx.Err(); ctxErr != nil {
		f.state = prev
		return 0, ctxErr
	}
	if err != nil {
		f.failLocked(canonical, name, err)
		return 0, err
	}

	outcome, err := f.persistLocked(canonical, result)
	if err != nil {
		f.failLocked(canonical, name, err)
		return 0, err
	}

	f.state = Verified{Contact: canonical, Outcome: outcome}
	f.cooldown.Stop()
	f.logger.Info("otp verified", zap.String("contact", mask(canonical)), zap.Stringer("outcome", outcome))
	return outcome, nil
}

// Reset returns the flow to Idle, dropping the phone and entered digits.
// The resend cooldown keeps running.
func (f *Flow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = Idle{}
	f.entry.Clear()
}

func (f *Flow) persistLocked(canonical string, result *models.OTPVerification) (Outcome, error) {
	if result.Profile {
		if result.Token == "" {
			return 0, ErrMissingToken
		}
		if err := f.store.SetToken(result.Token); err != nil {
			return 0, fmt.Errorf("save session: %w", err)
		}
		if err := f.store.SetContact(canonical); err != nil {
			return 0, fmt.Errorf("save contact: %w", err)
		}
		return OutcomeExisting, nil
	}

	if err := f.store.SetContact(canonical); err != nil {
		return 0, fmt.Errorf("save contact: %w", err)
	}
	if result.Token != "" {
		if err := f.store.SetToken(result.Token); err != nil {
			f.logger.Warn("save optional token", zap.Error(err))
		}
	}
	return OutcomeNew, nil
}

func (f *Flow) failLocked(canonical, name string, err error) {
	f.state = Failed{Contact: canonical, Name: name, Reason: err.Error()}
	f.entry.Clear()
}

// mask keeps the last four digits of a contact for logs.
func mask(canonical string) string {
	digits := contact.Digits(canonical)
	if len(digits) <= 4 {
		return "****"
	}
	return "****" + digits[len(digits)-4:]
}

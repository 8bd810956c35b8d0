// Package backend wraps the remote user/prescription REST API and the
// WhatsApp OTP endpoints. Calls are never retried.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/skinwise/internal/contact"
	"github.com/example/skinwise/internal/models"
)

// Client talks to the remote backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient builds a Client. A nil logger disables request logging.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// requestOpts captures inputs for a backend call.
type requestOpts struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Token  string
}

func (c *Client) do(ctx context.Context, opts requestOpts) ([]byte, error) {
	target := c.baseURL + "/" + strings.TrimLeft(opts.Path, "/")
	if len(opts.Query) > 0 {
		target += "?" + opts.Query.Encode()
	}

	var bodyReader io.Reader
	if opts.Body != nil {
		payload, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, opts.Method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if opts.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := strings.TrimSpace(opts.Token); token != "" {
		// The backend expects the raw token, not a "Bearer " scheme.
		req.Header.Set("Authorization", token)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("backend request failed",
			zap.String("method", opts.Method),
			zap.String("path", opts.Path),
			zap.Error(err))
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("backend request",
		zap.String("method", opts.Method),
		zap.String("path", opts.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(started)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errorFromResponse(resp.StatusCode, respBody)
	}

	return respBody, nil
}

func userPath(format, canonical string) string {
	return fmt.Sprintf(format, url.PathEscape(canonical))
}

// GetUser fetches the user keyed by the canonical contact. A missing user is a 404 APIError.
func (c *Client) GetUser(ctx context.Context, token, canonical string) (*models.User, error) {
	body, err := c.do(ctx, requestOpts{
		Method: http.MethodGet,
		Path:   userPath("get-user/%s", canonical),
		Token:  token,
	})
	if err != nil {
		return nil, err
	}

	user, err := decodeUser(body)
	if err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return user, nil
}

// GetUserWithAllData fetches the user with prescriptions and conversations.
func (c *Client) GetUserWithAllData(ctx context.Context, token, canonical string) (*models.UserData, error) {
	body, err := c.do(ctx, requestOpts{
		Method: http.MethodGet,
		Path:   userPath("get-user/%s/with-all-data", canonical),
		Token:  token,
	})
	if err != nil {
		return nil, err
	}

	var data models.UserData
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("decode user data: %w", err)
	}
	return &data, nil
}

// UpdateUser patches the user record and returns the updated record.
func (c *Client) UpdateUser(ctx context.Context, token, canonical string, update models.UserUpdate) (*models.User, error) {
	body, err := c.do(ctx, requestOpts{
		Method: http.MethodPatch,
		Path:   userPath("update-user/%s", canonical),
		Body:   update,
		Token:  token,
	})
	if err != nil {
		return nil, err
	}

	user, err := decodeUser(body)
	if err != nil {
		return nil, fmt.Errorf("decode updated user: %w", err)
	}
	return user, nil
}

// SendOTP asks the messaging backend to deliver a WhatsApp code to phone.
func (c *Client) SendOTP(ctx context.Context, phone, name string) error {
	digits := contact.Digits(phone)
	if len(digits) < 10 {
		return ErrInvalidPhone
	}

	_, err := c.do(ctx, requestOpts{
		Method: http.MethodGet,
		Path:   "sendWAOTPUser",
		Query: url.Values{
			"phonenumber": []string{digits},
			"name":        []string{strings.TrimSpace(name)},
		},
	})
	return err
}

// VerifyOTP submits code for phone. The call only succeeds when the backend
// message confirms verification; the HTTP status alone is not enough.
func (c *Client) VerifyOTP(ctx context.Context, phone, code string) (*models.OTPVerification, error) {
	digits := contact.Digits(phone)
	if len(digits) < 10 {
		return nil, ErrInvalidPhone
	}
	if err := ValidateCode(code); err != nil {
		return nil, err
	}

	body, err := c.do(ctx, requestOpts{
		Method: http.MethodGet,
		Path:   "VerifyWAOTPUser",
		Query: url.Values{
			"phonenumber": []string{digits},
			"code":        []string{code},
		},
	})
	if err != nil {
		return nil, err
	}

	return parseVerification(body)
}

// VerifyAuth re-fetches the user behind the stored credential and checks that
// it is the same contact the caller is about to show.
func (c *Client) VerifyAuth(ctx context.Context, token, canonical string) (*models.User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrNoCredential
	}

	user, err := c.GetUser(ctx, token, canonical)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Contact != canonical {
		return nil, ErrContactMismatch
	}
	return user, nil
}

// ValidateCode checks that code is exactly four ASCII digits.
func ValidateCode(code string) error {
	if len(code) != 4 {
		return ErrInvalidCode
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return ErrInvalidCode
		}
	}
	return nil
}

func parseVerification(body []byte) (*models.OTPVerification, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		return nil, ErrMalformedVerification
	}

	var result models.OTPVerification
	if msg, ok := raw["message"]; ok {
		if err := json.Unmarshal(msg, &result.Message); err != nil {
			return nil, ErrMalformedVerification
		}
	}

	if !strings.Contains(strings.ToLower(result.Message), "verified") {
		return nil, &VerificationError{Message: result.Message}
	}

	profile, ok := raw["profile"]
	if !ok {
		return nil, ErrMalformedVerification
	}
	// json.Unmarshal accepts null into a bool; the payload must carry a real boolean.
	if p := strings.TrimSpace(string(profile)); p != "true" && p != "false" {
		return nil, ErrMalformedVerification
	}
	if err := json.Unmarshal(profile, &result.Profile); err != nil {
		return nil, ErrMalformedVerification
	}

	if token, ok := raw["token"]; ok {
		// A non-string token is ignored rather than failing an otherwise valid verification.
		_ = json.Unmarshal(token, &result.Token)
	}

	return &result, nil
}

// decodeUser accepts either a bare user object or one wrapped in {"user": ...}.
func decodeUser(body []byte) (*models.User, error) {
	var wrapped struct {
		User *models.User `json:"user"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.User != nil {
		return wrapped.User, nil
	}

	var user models.User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

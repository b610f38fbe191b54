// Package auth implements the GitHub OAuth device flow.
// It follows the "deep modules" principle - a simple two-call interface
// (request a code, poll for the token) hiding the polling state machine.
//
// https://docs.github.com/en/apps/oauth-apps/building-oauth-apps/authorizing-oauth-apps#device-flow
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"
)

const (
	// ClientID is the public OAuth app client ID compiled into the binary.
	// Device flow clients have no secret; the ID alone identifies the app.
	ClientID = "Ov23liJcQWLvHdlbF8gj"

	// Scope is the fixed scope set requested on every login attempt.
	Scope = "repo project read:org read:user"

	deviceCodeURL = "https://github.com/login/device/code"
	tokenURL      = "https://github.com/login/oauth/access_token"

	// DefaultPollTimeout is the hard wall-clock cap on polling. GitHub
	// device codes expire after 15 minutes regardless of what expires_in
	// says, so polling past that point can never succeed.
	DefaultPollTimeout = 15 * time.Minute
)

// slowDownStep is the backoff added to the poll interval when the provider
// answers slow_down (RFC 8628 section 3.5 mandates 5s). Var so tests can
// scale it down.
var slowDownStep = 5 * time.Second

// Sentinel errors for the terminal flow outcomes.
var (
	// ErrDeviceCodeRequest indicates the device code endpoint returned a
	// non-success status. Not retried; start a fresh flow.
	ErrDeviceCodeRequest = errors.New("device code request failed")
	// ErrAuthorizationExpired indicates the device code expired before the
	// user authorized it (or the hard poll timeout fired).
	ErrAuthorizationExpired = errors.New("authorization expired, please try again")
	// ErrAccessDenied indicates the user declined the authorization.
	ErrAccessDenied = errors.New("access denied")
	// ErrAlreadyPolled indicates PollForAccessToken was called more than
	// once on the same flow. Each device authorization gets one poll loop.
	ErrAlreadyPolled = errors.New("flow already polled; start a new login attempt")
)

// FlowError is a structured error code from the token endpoint that does
// not map to one of the sentinel outcomes.
type FlowError struct {
	Code        string
	Description string
}

func (e *FlowError) Error() string {
	if e.Description != "" {
		return e.Description
	}
	if e.Code != "" {
		return fmt.Sprintf("authorization failed: %s", e.Code)
	}
	return "authorization failed: unknown error"
}

// State is the poller's position in the device flow lifecycle.
type State int

const (
	StateIdle State = iota
	StateRequesting
	StateWaiting
	StateSucceeded
	StateDenied
	StateExpired
	StateFailed
)

// String returns the state name for display and logging.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequesting:
		return "requesting"
	case StateWaiting:
		return "waiting"
	case StateSucceeded:
		return "succeeded"
	case StateDenied:
		return "denied"
	case StateExpired:
		return "expired"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the flow has resolved. A terminal state is
// immutable; a new login attempt constructs a fresh Flow.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateDenied || s == StateExpired || s == StateFailed
}

// DeviceAuthorization is the device/user code pair returned by the
// provider. It lives for one login attempt and is never persisted.
type DeviceAuthorization struct {
	DeviceCode      string `json:"device_code"`      // opaque, sent on every poll
	UserCode        string `json:"user_code"`        // shown to the user
	VerificationURI string `json:"verification_uri"` // URL the user visits
	ExpiresIn       int    `json:"expires_in"`       // seconds until the codes expire
	Interval        int    `json:"interval"`         // seconds between polls
}

// Flow drives one OAuth device flow attempt: request a code pair, then
// poll the token endpoint until the user authorizes, denies, or the codes
// expire. A Flow is single-use.
type Flow struct {
	// ClientID and Scope default to the compiled-in app identity.
	ClientID string
	Scope    string

	// Endpoint and transport overrides, used by tests. Zero values mean
	// the GitHub production endpoints and http.DefaultClient.
	DeviceCodeURL string
	TokenURL      string
	HTTPClient    *http.Client

	// PollTimeout caps the whole polling loop; defaults to DefaultPollTimeout.
	PollTimeout time.Duration

	mu     sync.Mutex
	state  State
	polled bool
}

// NewFlow returns a flow with the compiled-in client identity and defaults.
func NewFlow() *Flow {
	return &Flow{
		ClientID:    ClientID,
		Scope:       Scope,
		PollTimeout: DefaultPollTimeout,
	}
}

// State returns the flow's current lifecycle state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Flow) setState(s State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

func (f *Flow) httpClient() *http.Client {
	if f.HTTPClient != nil {
		return f.HTTPClient
	}
	return http.DefaultClient
}

func (f *Flow) deviceCodeURL() string {
	if f.DeviceCodeURL != "" {
		return f.DeviceCodeURL
	}
	return deviceCodeURL
}

func (f *Flow) tokenURL() string {
	if f.TokenURL != "" {
		return f.TokenURL
	}
	return tokenURL
}

// postJSON issues one JSON-in/JSON-out POST and decodes the response body
// into out. The response status is returned so callers can classify.
func (f *Flow) postJSON(ctx context.Context, url string, body interface{}, out interface{}) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient().Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, nil
}

// RequestDeviceCode asks the provider for a device/user code pair.
// A non-success response fails with ErrDeviceCodeRequest; there is no
// retry - the caller surfaces the error and the flow returns to idle.
func (f *Flow) RequestDeviceCode(ctx context.Context) (*DeviceAuthorization, error) {
	f.setState(StateRequesting)

	var da DeviceAuthorization
	status, err := f.postJSON(ctx, f.deviceCodeURL(), map[string]string{
		"client_id": f.ClientID,
		"scope":     f.Scope,
	}, &da)
	if err != nil {
		f.setState(StateIdle)
		return nil, fmt.Errorf("%w: %v", ErrDeviceCodeRequest, err)
	}
	if status < 200 || status >= 300 {
		f.setState(StateIdle)
		return nil, fmt.Errorf("%w: status %d", ErrDeviceCodeRequest, status)
	}
	if da.DeviceCode == "" || da.UserCode == "" {
		f.setState(StateIdle)
		return nil, fmt.Errorf("%w: incomplete response", ErrDeviceCodeRequest)
	}

	f.setState(StateWaiting)
	return &da, nil
}

// tokenResponse is the token endpoint's union response shape: either an
// access token or a structured error code.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`

	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Protocol error codes recognized by the poll classification.
const (
	errAuthorizationPending = "authorization_pending"
	errSlowDown             = "slow_down"
	errExpiredToken         = "expired_token"
	errAccessDenied         = "access_denied"
)

// PollForAccessToken exchanges the device code for an access token,
// retrying at the given interval until the flow resolves. onTick is
// invoked once per attempt, before the request, and never after the flow
// has resolved or ctx was canceled; it exists only to drive a progress
// indicator and may be nil.
//
// The loop issues one request at a time and waits for its result before
// scheduling the next tick, so responses resolve in request order.
// Independent of server responses, polling is capped at PollTimeout;
// hitting the cap resolves Expired. Canceling ctx stops the loop at the
// next tick boundary and aborts the in-flight request.
func (f *Flow) PollForAccessToken(ctx context.Context, deviceCode string, interval time.Duration, onTick func()) (string, error) {
	f.mu.Lock()
	if f.polled {
		f.mu.Unlock()
		return "", ErrAlreadyPolled
	}
	f.polled = true
	f.state = StateWaiting
	f.mu.Unlock()

	timeout := f.PollTimeout
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if interval <= 0 {
		interval = 5 * time.Second
	}

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", f.resolveCtxErr(ctx)
		case <-timer.C:
		}

		if onTick != nil {
			onTick()
		}

		var tr tokenResponse
		if _, err := f.postJSON(ctx, f.tokenURL(), map[string]string{
			"client_id":   f.ClientID,
			"device_code": deviceCode,
			"grant_type":  "urn:ietf:params:oauth:grant-type:device_code",
		}, &tr); err != nil {
			// A transport error during the request may be the timeout or
			// cancelation firing mid-flight; classify through the context.
			if ctx.Err() != nil {
				return "", f.resolveCtxErr(ctx)
			}
			f.setState(StateFailed)
			return "", fmt.Errorf("token request: %w", err)
		}

		// Classification order matters: a token wins over any error code.
		switch {
		case tr.AccessToken != "":
			f.setState(StateSucceeded)
			return tr.AccessToken, nil

		case tr.Error == errAuthorizationPending:
			// Keep waiting for the user.

		case tr.Error == errSlowDown:
			// Honor the provider's backoff signal.
			interval += slowDownStep

		case tr.Error == errExpiredToken:
			f.setState(StateExpired)
			return "", ErrAuthorizationExpired

		case tr.Error == errAccessDenied:
			f.setState(StateDenied)
			return "", ErrAccessDenied

		default:
			f.setState(StateFailed)
			return "", &FlowError{Code: tr.Error, Description: tr.ErrorDescription}
		}

		timer.Reset(interval)
	}
}

// resolveCtxErr maps context termination onto a flow outcome: the deadline
// is the hard poll timeout (Expired). Caller cancelation is not a flow
// outcome; the state is left untouched so no transition happens after the
// caller walked away.
func (f *Flow) resolveCtxErr(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		f.setState(StateExpired)
		return ErrAuthorizationExpired
	}
	return ctx.Err()
}

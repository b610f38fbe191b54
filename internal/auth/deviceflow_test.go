package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestFlow wires a flow to a fake token endpoint with a short hard
// timeout so tests never wait on real-world intervals.
func newTestFlow(tokenURL string) *Flow {
	f := NewFlow()
	f.TokenURL = tokenURL
	f.PollTimeout = 2 * time.Second
	return f
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestRequestDeviceCode_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, ClientID, body["client_id"])
		assert.Equal(t, Scope, body["scope"])

		writeJSON(w, map[string]interface{}{
			"device_code":      "dev-123",
			"user_code":        "ABCD-1234",
			"verification_uri": "https://github.com/login/device",
			"expires_in":       900,
			"interval":         5,
		})
	}))
	defer srv.Close()

	f := NewFlow()
	f.DeviceCodeURL = srv.URL

	da, err := f.RequestDeviceCode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "dev-123", da.DeviceCode)
	assert.Equal(t, "ABCD-1234", da.UserCode)
	assert.Equal(t, "https://github.com/login/device", da.VerificationURI)
	assert.Equal(t, 900, da.ExpiresIn)
	assert.Equal(t, 5, da.Interval)
	assert.Equal(t, StateWaiting, f.State())
}

func TestRequestDeviceCode_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		writeJSON(w, map[string]string{})
	}))
	defer srv.Close()

	f := NewFlow()
	f.DeviceCodeURL = srv.URL

	da, err := f.RequestDeviceCode(context.Background())
	assert.Nil(t, da)
	assert.ErrorIs(t, err, ErrDeviceCodeRequest)
	assert.Equal(t, StateIdle, f.State(), "failed request returns the flow to idle")
}

func TestRequestDeviceCode_Unreachable(t *testing.T) {
	f := NewFlow()
	f.DeviceCodeURL = "http://127.0.0.1:1/device/code"

	_, err := f.RequestDeviceCode(context.Background())
	assert.ErrorIs(t, err, ErrDeviceCodeRequest)
	assert.Equal(t, StateIdle, f.State())
}

// TestPoll_SucceedsOnThirdAttempt verifies the poller keeps going through
// authorization_pending and resolves with exactly the token the server
// hands out, making exactly as many requests as it took.
func TestPoll_SucceedsOnThirdAttempt(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "dev-123", body["device_code"])
		assert.Equal(t, "urn:ietf:params:oauth:grant-type:device_code", body["grant_type"])

		if atomic.AddInt32(&calls, 1) < 3 {
			writeJSON(w, map[string]string{"error": "authorization_pending"})
			return
		}
		writeJSON(w, map[string]string{
			"access_token": "gho_secret",
			"token_type":   "bearer",
			"scope":        Scope,
		})
	}))
	defer srv.Close()

	var ticks int32
	f := newTestFlow(srv.URL)
	token, err := f.PollForAccessToken(context.Background(), "dev-123", 10*time.Millisecond, func() {
		atomic.AddInt32(&ticks, 1)
	})

	require.NoError(t, err)
	assert.Equal(t, "gho_secret", token)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls), "one request per tick, stop on success")
	assert.EqualValues(t, 3, atomic.LoadInt32(&ticks), "onTick fires once per attempt")
	assert.Equal(t, StateSucceeded, f.State())
}

func TestPoll_AccessDenied(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"error": "access_denied"})
	}))
	defer srv.Close()

	f := newTestFlow(srv.URL)
	token, err := f.PollForAccessToken(context.Background(), "dev-123", 10*time.Millisecond, nil)

	assert.Empty(t, token)
	assert.ErrorIs(t, err, ErrAccessDenied)
	assert.Equal(t, StateDenied, f.State())
}

func TestPoll_ExpiredToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"error": "expired_token"})
	}))
	defer srv.Close()

	f := newTestFlow(srv.URL)
	_, err := f.PollForAccessToken(context.Background(), "dev-123", 10*time.Millisecond, nil)

	assert.ErrorIs(t, err, ErrAuthorizationExpired)
	assert.Equal(t, StateExpired, f.State())
}

func TestPoll_UnknownErrorCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{
			"error":             "incorrect_device_code",
			"error_description": "The device code provided is not valid.",
		})
	}))
	defer srv.Close()

	f := newTestFlow(srv.URL)
	_, err := f.PollForAccessToken(context.Background(), "bogus", 10*time.Millisecond, nil)

	var flowErr *FlowError
	require.ErrorAs(t, err, &flowErr)
	assert.Equal(t, "incorrect_device_code", flowErr.Code)
	assert.Equal(t, "The device code provided is not valid.", flowErr.Error())
	assert.Equal(t, StateFailed, f.State())
}

func TestPoll_UnknownErrorWithoutDescription(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"error": "unsupported_grant_type"})
	}))
	defer srv.Close()

	f := newTestFlow(srv.URL)
	_, err := f.PollForAccessToken(context.Background(), "dev-123", 10*time.Millisecond, nil)

	var flowErr *FlowError
	require.ErrorAs(t, err, &flowErr)
	assert.Contains(t, flowErr.Error(), "unsupported_grant_type")
}

// TestPoll_SlowDownStretchesInterval verifies the provider's backoff signal
// is honored: after slow_down the gap to the next request grows by the
// backoff step (scaled down for the test).
func TestPoll_SlowDownStretchesInterval(t *testing.T) {
	origStep := slowDownStep
	slowDownStep = 200 * time.Millisecond
	defer func() { slowDownStep = origStep }()

	var calls int32
	var stamps []time.Time
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stamps = append(stamps, time.Now())
		switch atomic.AddInt32(&calls, 1) {
		case 1:
			writeJSON(w, map[string]string{"error": "slow_down"})
		default:
			writeJSON(w, map[string]string{"access_token": "gho_secret"})
		}
	}))
	defer srv.Close()

	f := newTestFlow(srv.URL)
	f.PollTimeout = 10 * time.Second

	token, err := f.PollForAccessToken(context.Background(), "dev-123", 20*time.Millisecond, nil)
	require.NoError(t, err)
	assert.Equal(t, "gho_secret", token)
	require.Len(t, stamps, 2)

	// First gap is the base interval; the second request waits the base
	// interval plus the backoff step. Loose lower bound for robustness.
	assert.GreaterOrEqual(t, stamps[1].Sub(stamps[0]), 200*time.Millisecond)
}

// TestPoll_HardTimeoutResolvesExpired verifies the wall-clock cap: a server
// that answers authorization_pending forever forces Expired at the timeout,
// and onTick never fires after resolution.
func TestPoll_HardTimeoutResolvesExpired(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"error": "authorization_pending"})
	}))
	defer srv.Close()

	f := newTestFlow(srv.URL)
	f.PollTimeout = 150 * time.Millisecond

	var ticks int32
	start := time.Now()
	_, err := f.PollForAccessToken(context.Background(), "dev-123", 20*time.Millisecond, func() {
		atomic.AddInt32(&ticks, 1)
	})
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, ErrAuthorizationExpired)
	assert.Equal(t, StateExpired, f.State())
	assert.Less(t, elapsed, 2*time.Second, "resolution happens at the cap, not later")

	after := atomic.LoadInt32(&ticks)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt32(&ticks), "no ticks after resolution")
}

// TestPoll_CancelStopsEverything verifies cancelation semantics: after the
// caller cancels, no further onTick fires and no terminal state is entered,
// even though a request had already been issued.
func TestPoll_CancelStopsEverything(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release // hold the in-flight request until after cancelation
		writeJSON(w, map[string]string{"access_token": "gho_late"})
	}))
	defer srv.Close()
	defer close(release)

	f := newTestFlow(srv.URL)
	f.PollTimeout = 30 * time.Second

	ctx, cancel := context.WithCancel(context.Background())
	var ticks int32
	done := make(chan error, 1)
	go func() {
		_, err := f.PollForAccessToken(ctx, "dev-123", 10*time.Millisecond, func() {
			atomic.AddInt32(&ticks, 1)
		})
		done <- err
	}()

	// Wait for the first attempt to be in flight, then cancel.
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&ticks) >= 1
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop after cancelation")
	}

	after := atomic.LoadInt32(&ticks)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt32(&ticks), "no onTick after cancel")
	assert.False(t, f.State().Terminal(), "cancelation is not a flow outcome")
}

// TestPoll_SingleUse verifies a flow refuses a second polling loop; one
// device authorization gets exactly one poll.
func TestPoll_SingleUse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"access_token": "gho_secret"})
	}))
	defer srv.Close()

	f := newTestFlow(srv.URL)
	_, err := f.PollForAccessToken(context.Background(), "dev-123", 10*time.Millisecond, nil)
	require.NoError(t, err)

	_, err = f.PollForAccessToken(context.Background(), "dev-123", 10*time.Millisecond, nil)
	assert.ErrorIs(t, err, ErrAlreadyPolled)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "waiting", StateWaiting.String())
	assert.Equal(t, "succeeded", StateSucceeded.String())
	assert.True(t, StateDenied.Terminal())
	assert.False(t, StateWaiting.Terminal())
}

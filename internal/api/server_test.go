package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hwalther/lightson/internal/auth"
	"github.com/hwalther/lightson/internal/camera"
	"github.com/hwalther/lightson/internal/lights"
	"github.com/hwalther/lightson/internal/simon"
)

type fakeController struct {
	mu    sync.Mutex
	sends []lights.Color
	err   error
}

func (f *fakeController) SetColor(_ context.Context, c lights.Color) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sends = append(f.sends, c)
	return nil
}

type fakeVerifier struct {
	err error
}

func (f *fakeVerifier) VerifyRequest(context.Context, *http.Request) error { return f.err }

type fakeEnqueuer struct {
	mu     sync.Mutex
	colors []string
	err    error
}

func (f *fakeEnqueuer) EnqueueColor(_ context.Context, color string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.colors = append(f.colors, color)
	return nil
}

type testDeps struct {
	frames   *camera.FrameBuffer
	ctrl     *fakeController
	verifier *fakeVerifier
	enqueuer *fakeEnqueuer
	game     *simon.Game
	hub      *simon.Hub
}

func newTestServer(t *testing.T) (*Server, *testDeps) {
	t.Helper()
	deps := &testDeps{
		frames:   camera.NewFrameBuffer(),
		ctrl:     &fakeController{},
		verifier: &fakeVerifier{},
		enqueuer: &fakeEnqueuer{},
		hub:      simon.NewHub(),
	}
	deps.game = simon.New(deps.ctrl, simon.Options{
		Palette:       []simon.Color{simon.Red},
		StepInterval:  time.Millisecond,
		FlashInterval: time.Millisecond,
		Hub:           deps.hub,
	})
	s := NewServer(deps.frames, deps.ctrl, deps.game, deps.hub, deps.verifier, deps.enqueuer, Options{})
	return s, deps
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func waitIdle(t *testing.T, game *simon.Game) {
	t.Helper()
	require.Eventually(t, func() bool { return !game.Playing() }, time.Second, time.Millisecond)
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]bool
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp["ok"])
}

func TestSnapshotBeforeFirstFrame(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s, http.MethodGet, "/camera/snapshot", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSnapshotWithoutVideoSource(t *testing.T) {
	_, deps := newTestServer(t)
	s := NewServer(nil, deps.ctrl, deps.game, deps.hub, deps.verifier, deps.enqueuer, Options{})

	w := doJSON(t, s, http.MethodGet, "/camera/snapshot", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSnapshotServesJPEG(t *testing.T) {
	s, deps := newTestServer(t)
	deps.frames.Publish(image.NewRGBA(image.Rect(0, 0, 32, 24)), time.Now())

	w := doJSON(t, s, http.MethodGet, "/camera/snapshot", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Width)
}

func TestSetColorRejectedCaller(t *testing.T) {
	s, deps := newTestServer(t)
	deps.verifier.err = auth.ErrForbidden

	w := doJSON(t, s, http.MethodPost, "/set-color", map[string]string{"color": "red"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, deps.ctrl.sends)
}

func TestSetColorSuccess(t *testing.T) {
	s, deps := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/set-color", map[string]string{"color": "#ff0000"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, "#ff0000", resp["color"])

	require.Len(t, deps.ctrl.sends, 1)
	assert.Equal(t, lights.Color{R: 255}, deps.ctrl.sends[0])
}

func TestSetColorInvalidPayload(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/set-color", map[string]string{"color": "not a color"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetColorUpstreamFailure(t *testing.T) {
	s, deps := newTestServer(t)
	deps.ctrl.err = errors.New("bridge timeout")

	w := doJSON(t, s, http.MethodPost, "/set-color", map[string]string{"color": "blue"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestEnqueueColor(t *testing.T) {
	s, deps := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/enqueue-color", map[string]string{"color": "purple"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]bool
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp["queued"])
	assert.Equal(t, []string{"purple"}, deps.enqueuer.colors)
}

func TestEnqueueColorQueueFailure(t *testing.T) {
	s, deps := newTestServer(t)
	deps.enqueuer.err = errors.New("queue unavailable")

	w := doJSON(t, s, http.MethodPost, "/enqueue-color", map[string]string{"color": "purple"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestEnqueueColorNotConfigured(t *testing.T) {
	_, deps := newTestServer(t)
	s := NewServer(deps.frames, deps.ctrl, deps.game, deps.hub, deps.verifier, nil, Options{})

	w := doJSON(t, s, http.MethodPost, "/enqueue-color", map[string]string{"color": "purple"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

// Fresh game: round seeds one color; the correct single-color submission
// extends to two; a wrong submission resets the next round to one.
func TestSimonEndToEnd(t *testing.T) {
	s, deps := newTestServer(t)

	w := doJSON(t, s, http.MethodGet, "/simon/round", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var round map[string]int
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &round))
	require.Equal(t, 1, round["length"])

	// single-color palette makes the answer deterministic
	w = doJSON(t, s, http.MethodPost, "/simon/check", map[string][]string{"sequence": {"red"}})
	require.Equal(t, http.StatusOK, w.Code)
	var verdict map[string]bool
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &verdict))
	assert.True(t, verdict["correct"])
	waitIdle(t, deps.game)

	w = doJSON(t, s, http.MethodGet, "/simon/round", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &round))
	assert.Equal(t, 2, round["length"])

	w = doJSON(t, s, http.MethodPost, "/simon/check", map[string][]string{"sequence": {"blue"}})
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &verdict))
	assert.False(t, verdict["correct"])
	waitIdle(t, deps.game)

	w = doJSON(t, s, http.MethodGet, "/simon/round", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &round))
	assert.Equal(t, 1, round["length"])
}

func TestCheckRejectsUnknownColor(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/simon/check", map[string][]string{"sequence": {"ultraviolet"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSimonEventsWebsocket(t *testing.T) {
	s, deps := newTestServer(t)
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/simon/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// the handler registers the connection after the upgrade completes
	require.Eventually(t, func() bool { return deps.hub.Count() == 1 }, time.Second, time.Millisecond)

	deps.game.RequestRound()

	conn.SetReadDeadline(time.Now().Add(time.Second))
	sawRound := false
	for i := 0; i < 5 && !sawRound; i++ {
		var ev simon.Event
		if err := conn.ReadJSON(&ev); err != nil {
			break
		}
		if ev.Type == simon.EventRound {
			sawRound = true
			assert.Equal(t, 1, ev.Length)
		}
	}
	assert.True(t, sawRound, "expected a round event on the websocket")
	waitIdle(t, deps.game)
}

// Package hue drives Philips Hue lights over the bridge's local HTTP API.
package hue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/hwalther/lightson/internal/lights"
	"github.com/hwalther/lightson/internal/logger"
)

const (
	defaultTimeout = 5 * time.Second

	// brightness sent with every state change
	fullBrightness = 254
)

// Config holds the bridge connection settings
type Config struct {
	// BridgeAddr is the bridge host (and optional port)
	BridgeAddr string
	// Username is the bridge API credential
	Username string
	// LightIDs are the bridge-local light IDs to drive
	LightIDs []string
	// Timeout bounds each per-light state request (default 5s)
	Timeout time.Duration
}

// Bridge is a lights.Controller backed by a Hue bridge
type Bridge struct {
	cfg    Config
	client *http.Client
}

var _ lights.Controller = (*Bridge)(nil)

// New creates a Bridge for the given configuration
func New(cfg Config) *Bridge {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Bridge{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

// stateBody is the bridge's light-state payload
type stateBody struct {
	On  bool       `json:"on"`
	Bri uint8      `json:"bri"`
	XY  [2]float64 `json:"xy"`
}

// SetColor applies the color to every configured light. The per-light
// requests are dispatched in parallel and joined; if any light fails the
// whole call fails. There is no partial-success reporting and no retry.
func (b *Bridge) SetColor(ctx context.Context, color lights.Color) error {
	x, y := color.XY()

	body, err := json.Marshal(stateBody{On: true, Bri: fullBrightness, XY: [2]float64{x, y}})
	if err != nil {
		return fmt.Errorf("failed to encode state body: %w", err)
	}

	log := logger.WithComponent("hue")
	log.Debug().
		Str("color", color.Hex()).
		Float64("x", x).
		Float64("y", y).
		Int("lights", len(b.cfg.LightIDs)).
		Msg("Setting light state")

	var wg sync.WaitGroup
	errs := make([]error, len(b.cfg.LightIDs))
	for i, id := range b.cfg.LightIDs {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			errs[i] = b.setLightState(ctx, id, body)
		}(i, id)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return fmt.Errorf("light %s: %w", b.cfg.LightIDs[i], err)
		}
	}
	return nil
}

// setLightState PUTs the state body to a single light
func (b *Bridge) setLightState(ctx context.Context, lightID string, body []byte) error {
	url := fmt.Sprintf("http://%s/api/%s/lights/%s/state", b.cfg.BridgeAddr, b.cfg.Username, lightID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("bridge returned status %d", resp.StatusCode)
	}
	return nil
}

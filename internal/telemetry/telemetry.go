// Package telemetry posts timing and give-up beacons to the stats collector.
// Submissions never block the caller and failures are only logged.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	OriginLocal  = "local"
	OriginRemote = "remote"

	DefaultTimeout = 5 * time.Second
)

type Config struct {
	// BaseURL is the render service root; beacons go under <BaseURL>/stats/.
	BaseURL string
	Format  string
	Client  *http.Client
	Timeout time.Duration
	Logger  *zerolog.Logger
}

func (c Config) WithDefaults() Config {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.Client == nil {
		c.Client = http.DefaultClient
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Logger == nil {
		l := log.Logger
		c.Logger = &l
	}
	return c
}

type Client struct {
	cfg Config
	log zerolog.Logger
	wg  sync.WaitGroup
}

func New(cfg Config) *Client {
	cfg = cfg.WithDefaults()
	return &Client{
		cfg: cfg,
		log: cfg.Logger.With().Str("component", "telemetry").Str("format", cfg.Format).Logger(),
	}
}

func (c *Client) Format() string {
	return c.cfg.Format
}

// SubmitTiming posts timing as JSON to /stats/timing/<origin>/<format>/.
func (c *Client) SubmitTiming(origin string, timing map[string]float64) {
	if c.cfg.BaseURL == "" {
		return
	}
	body, err := json.Marshal(timing)
	if err != nil {
		c.log.Warn().Err(err).Str("origin", origin).Msg("encode timing report")
		return
	}
	target := fmt.Sprintf("%s/stats/timing/%s/%s/", c.cfg.BaseURL, url.PathEscape(origin), url.PathEscape(c.cfg.Format))
	c.post(target, body)
}

// SubmitGiveUp posts an empty beacon to /stats/<format>/gave_up.
func (c *Client) SubmitGiveUp() {
	if c.cfg.BaseURL == "" {
		return
	}
	target := fmt.Sprintf("%s/stats/%s/gave_up", c.cfg.BaseURL, url.PathEscape(c.cfg.Format))
	c.post(target, nil)
}

// Wait blocks until every beacon in flight has finished.
func (c *Client) Wait() {
	c.wg.Wait()
}

func (c *Client) post(target string, body []byte) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
		if err != nil {
			c.log.Warn().Err(err).Str("url", target).Msg("build beacon request")
			return
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := c.cfg.Client.Do(req)
		if err != nil {
			c.log.Debug().Err(err).Str("url", target).Msg("beacon failed")
			return
		}
		resp.Body.Close()
		if resp.StatusCode >= http.StatusBadRequest {
			c.log.Debug().Int("status", resp.StatusCode).Str("url", target).Msg("beacon rejected")
		}
	}()
}

// Nop discards every beacon.
type Nop struct{}

func (Nop) SubmitTiming(string, map[string]float64) {}
func (Nop) SubmitGiveUp()                           {}

// Package stats is the collector for frame timing and give-up beacons.
package stats

import (
	"errors"
	"net/http"
	"time"

	"github.com/danmuck/renderframe/internal/config"
	"github.com/danmuck/renderframe/internal/node"
	"github.com/danmuck/renderframe/internal/observability"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	ErrUnknownOrigin = errors.New("unknown timing origin")
	ErrUnknownFormat = errors.New("format not accepted")
	ErrEmptyTiming   = errors.New("timing report is empty")
)

type Collector struct {
	ID       string    `json:"id"`
	Addr     string    `json:"addr"`
	Appeared time.Time `json:"appeared"`
	Recorder *Recorder `json:"-"`

	router  *gin.Engine
	formats map[string]struct{}
}

var _ node.Node = (*Collector)(nil)

func Appear(cfg config.StatsConfig) *Collector {
	cfg = cfg.WithDefaults()
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(cfg.Name))
	r.Use(cors.New(cors.Config{
		AllowOrigins: node.NormalizeOrigins(cfg.CorsOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	var formats map[string]struct{}
	if len(cfg.Formats) > 0 {
		formats = make(map[string]struct{}, len(cfg.Formats))
		for _, f := range cfg.Formats {
			formats[f] = struct{}{}
		}
	}
	return &Collector{
		ID:       cfg.Name,
		Addr:     cfg.Addr,
		Appeared: time.Now(),
		Recorder: NewRecorder(cfg.History),
		router:   r,
		formats:  formats,
	}
}

func (c *Collector) NodeID() string {
	return c.ID
}

func (c *Collector) Kind() string {
	return "stats"
}

func (c *Collector) HTTPRouter() *gin.Engine {
	return c.router
}

func (c *Collector) RegisterRoutes() {
	c.router.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(c.Appeared).String(),
			"service": c.ID,
		})
	})
	c.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	c.router.GET("/stats", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"formats": c.Recorder.Summaries()})
	})

	c.router.POST("/stats/timing/:origin/:format/", func(ctx *gin.Context) {
		var timing map[string]float64
		if err := ctx.ShouldBindJSON(&timing); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		err := c.RecordTiming(ctx.Param("origin"), ctx.Param("format"), timing)
		if err != nil {
			ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		ctx.Status(http.StatusNoContent)
	})

	c.router.POST("/stats/:format/gave_up", func(ctx *gin.Context) {
		if err := c.RecordGiveUp(ctx.Param("format")); err != nil {
			ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		ctx.Status(http.StatusNoContent)
	})
}

func (c *Collector) RecordTiming(origin, format string, timing map[string]float64) error {
	if origin != "local" && origin != "remote" {
		return ErrUnknownOrigin
	}
	if !c.accepts(format) {
		return ErrUnknownFormat
	}
	if len(timing) == 0 {
		return ErrEmptyTiming
	}
	c.Recorder.RecordTiming(Report{Origin: origin, Format: format, Timing: timing, Received: time.Now()})
	observability.RecordTiming(origin, format, timing)
	log.Debug().Str("origin", origin).Str("format", format).Int("marks", len(timing)).Msg("timing report")
	return nil
}

func (c *Collector) RecordGiveUp(format string) error {
	if !c.accepts(format) {
		return ErrUnknownFormat
	}
	c.Recorder.RecordGiveUp(format)
	observability.RecordGiveUp(format)
	log.Info().Str("format", format).Msg("frame gave up loading content")
	return nil
}

func (c *Collector) accepts(format string) bool {
	if config.ValidateFormat(format) != nil {
		return false
	}
	if c.formats == nil {
		return true
	}
	_, ok := c.formats[format]
	return ok
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrUnknownFormat):
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

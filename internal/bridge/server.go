// Package bridge exposes frames over HTTP so a host page (or anything acting
// as one) can post messages to them and collect their statuses.
package bridge

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danmuck/renderframe/internal/auth"
	"github.com/danmuck/renderframe/internal/clock"
	"github.com/danmuck/renderframe/internal/frame"
	"github.com/danmuck/renderframe/internal/loader"
	"github.com/danmuck/renderframe/internal/node"
	"github.com/danmuck/renderframe/internal/observability"
	"github.com/danmuck/renderframe/internal/render/mmdc"
	"github.com/danmuck/renderframe/internal/viewer"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Name                  string
	Addr                  string
	CorsOrigins           []string
	HostSuffix            string
	Format                string
	DocsHostname          string
	RenderURL             string
	ClientTimeoutAttempts int
	LoadTimeout           time.Duration
	Debounce              time.Duration
	Width                 float64
	OutboxCapacity        int
	// AuthToken, when set, is required as a bearer token on /frames routes.
	AuthToken string
	Engine    mmdc.Config
	Clock     clock.Clock
}

func DefaultConfig() Config {
	return Config{
		Name:                  "renderframe",
		Addr:                  ":9200",
		HostSuffix:            frame.DefaultHostSuffix,
		Format:                frame.DefaultFormat,
		DocsHostname:          viewer.DefaultDocsHostname,
		ClientTimeoutAttempts: loader.DefaultAttempts,
		LoadTimeout:           loader.DefaultTimeout,
		Debounce:              viewer.DefaultDebounce,
		Width:                 frame.DefaultWidth,
		OutboxCapacity:        DefaultOutboxCapacity,
		Engine:                mmdc.DefaultConfig(),
	}
}

type Server struct {
	ID       string    `json:"id"`
	Addr     string    `json:"addr"`
	Appeared time.Time `json:"appeared"`
	Frames   *Registry `json:"-"`

	cfg       Config
	renderer  viewer.Renderer
	telemetry frame.Telemetry
	validator auth.Validator
	router    *gin.Engine
}

var _ node.Node = (*Server)(nil)

func New(cfg Config, renderer viewer.Renderer, telemetry frame.Telemetry) *Server {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(cfg.Name))
	r.Use(cors.New(cors.Config{
		AllowOrigins: node.NormalizeOrigins(cfg.CorsOrigins),
		AllowMethods: []string{"GET", "POST", "DELETE"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	var validator auth.Validator
	if strings.TrimSpace(cfg.AuthToken) != "" {
		validator = auth.StaticToken{Token: strings.TrimSpace(cfg.AuthToken)}
	}
	return &Server{
		ID:        cfg.Name,
		Addr:      cfg.Addr,
		Appeared:  time.Now(),
		Frames:    NewRegistry(),
		cfg:       cfg,
		renderer:  renderer,
		telemetry: telemetry,
		validator: validator,
		router:    r,
	}
}

func (s *Server) NodeID() string {
	return s.ID
}

func (s *Server) Kind() string {
	return "bridge"
}

func (s *Server) HTTPRouter() *gin.Engine {
	return s.router
}

type CreateFrameRequest struct {
	Identity string `json:"identity"`
	// Location is the frame URL; its fragment is the identity when Identity
	// is empty.
	Location string  `json:"location"`
	Width    float64 `json:"width"`
	// OffsetX and OffsetY position the container inside the frame.
	OffsetX float64 `json:"offset_x"`
	OffsetY float64 `json:"offset_y"`
	// Detached frames have no parent and never post statuses.
	Detached bool `json:"detached"`
}

type LoadSourceRequest struct {
	URL   string  `json:"url" binding:"required"`
	Width float64 `json:"width"`
}

func (s *Server) RegisterRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Appeared).String(),
			"service": s.ID,
			"frames":  len(s.Frames.Identities()),
		})
	})
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	frames := s.router.Group("/frames")
	if s.validator != nil {
		frames.Use(requireToken(s.validator))
	}

	frames.GET("", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"frames": s.Frames.Identities()})
	})

	frames.POST("", func(c *gin.Context) {
		var req CreateFrameRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}
		f, err := s.CreateFrame(req)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, f.View())
	})

	frames.DELETE("/:identity", func(c *gin.Context) {
		if err := s.Frames.Remove(c.Param("identity")); err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	})

	frames.POST("/:identity/messages", func(c *gin.Context) {
		f, _, err := s.Frames.Get(c.Param("identity"))
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		data, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		accepted := f.HandleMessage(c.GetHeader("Origin"), data)
		c.JSON(http.StatusAccepted, gin.H{"accepted": accepted})
	})

	frames.GET("/:identity/messages", func(c *gin.Context) {
		_, outbox, err := s.Frames.Get(c.Param("identity"))
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		after, err := parseCursor(c.Query("after"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		messages := outbox.Since(after)
		next := after
		if len(messages) > 0 {
			next = messages[len(messages)-1].Seq
		}
		c.JSON(http.StatusOK, gin.H{"messages": messages, "next": next, "dropped": outbox.Dropped()})
	})

	// Collect-and-clear for hosts that do not track a cursor.
	frames.DELETE("/:identity/messages", func(c *gin.Context) {
		_, outbox, err := s.Frames.Get(c.Param("identity"))
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		messages := outbox.Drain()
		var next uint64
		if len(messages) > 0 {
			next = messages[len(messages)-1].Seq
		}
		c.JSON(http.StatusOK, gin.H{"messages": messages, "next": next, "dropped": outbox.Dropped()})
	})

	frames.GET("/:identity/view", func(c *gin.Context) {
		f, _, err := s.Frames.Get(c.Param("identity"))
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, f.View())
	})

	frames.POST("/:identity/controls/:control", func(c *gin.Context) {
		f, _, err := s.Frames.Get(c.Param("identity"))
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		control, err := viewer.ParseControl(c.Param("control"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		transform, err := f.Control(control)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"transform": transform, "css": transform.CSS()})
	})

	frames.POST("/:identity/source", func(c *gin.Context) {
		f, _, err := s.Frames.Get(c.Param("identity"))
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		var req LoadSourceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := f.LoadSource(c.Request.Context(), req.URL, req.Width); err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, f.View())
	})
}

// CreateFrame builds, registers and starts a frame.
func (s *Server) CreateFrame(req CreateFrameRequest) (*frame.Frame, error) {
	identity := strings.TrimSpace(req.Identity)
	if identity == "" {
		identity = frame.IdentityFromLocation(req.Location)
	}
	if identity == "" {
		identity = uuid.NewString()
	}
	width := req.Width
	if width <= 0 {
		width = s.cfg.Width
	}

	outbox := NewOutbox(s.cfg.OutboxCapacity)
	cfg := frame.Config{
		Identity:              identity,
		HostSuffix:            s.cfg.HostSuffix,
		Format:                s.cfg.Format,
		Telemetry:             s.telemetry,
		Renderer:              s.renderer,
		Width:                 width,
		OffsetX:               req.OffsetX,
		OffsetY:               req.OffsetY,
		DocsHostname:          s.cfg.DocsHostname,
		ClientTimeoutAttempts: s.cfg.ClientTimeoutAttempts,
		LoadTimeout:           s.cfg.LoadTimeout,
		Debounce:              s.cfg.Debounce,
		Clock:                 s.cfg.Clock,
	}
	if !req.Detached {
		cfg.Host = outbox
	}
	f, err := frame.New(cfg)
	if err != nil {
		return nil, err
	}
	if err := s.Frames.Add(f, outbox); err != nil {
		f.Close()
		return nil, err
	}
	f.Start()
	log.Info().Str("identity", identity).Bool("detached", req.Detached).Msg("frame created")
	return f, nil
}

// Close stops every frame.
func (s *Server) Close() {
	s.Frames.Close()
}

func requireToken(v auth.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := auth.BearerToken(c.GetHeader("Authorization"))
		if !ok || v.Validate(token) != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": auth.ErrUnauthorized.Error()})
			return
		}
		c.Next()
	}
}

func parseCursor(raw string) (uint64, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, nil
	}
	return strconv.ParseUint(raw, 10, 64)
}

func statusFor(err error) int {
	var protoErr *loader.ProtocolError
	var transient *loader.TransientLoadError
	switch {
	case errors.Is(err, ErrFrameNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrFrameExists):
		return http.StatusConflict
	case errors.As(err, &protoErr):
		return http.StatusBadRequest
	case errors.As(err, &transient):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Package server wires the registry, gateway, ledger and handlers into the
// marketplace HTTP surface: free discovery/stats/health endpoints plus one
// payment-gated route per catalog resource.
package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xeipuuv/gojsonschema"

	"github.com/conduit-market/conduit"
	"github.com/conduit-market/conduit/gateway"
	"github.com/conduit-market/conduit/gateway/ginware"
	"github.com/conduit-market/conduit/handlers"
	"github.com/conduit-market/conduit/ledger"
	"github.com/conduit-market/conduit/registry"
)

// Protocol identifies the payment protocol spoken by this marketplace.
const Protocol = "x402-stacks"

// Version is the marketplace API version reported by /discover.
const Version = "2.0"

// recentEntries is how many ledger entries /stats returns.
const recentEntries = 10

// Config wires a Server.
type Config struct {
	Registry    *registry.Registry
	Gateway     *gateway.Gateway
	Ledger      *ledger.Ledger
	Handlers    *handlers.Set
	Network     string
	Facilitator string
	PayTo       string
	Logger      *slog.Logger
}

// Server is the marketplace HTTP server.
type Server struct {
	cfg     Config
	engine  *gin.Engine
	schemas map[string]*gojsonschema.Schema
	start   time.Time
	logger  *slog.Logger
}

// New builds the server and registers all routes. Parameter schemas are
// compiled once here; a malformed schema is a startup error, not a request
// error.
func New(cfg Config) (*Server, error) {
	if cfg.Registry == nil || cfg.Gateway == nil || cfg.Ledger == nil || cfg.Handlers == nil {
		return nil, fmt.Errorf("server: registry, gateway, ledger and handlers are all required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:     cfg,
		schemas: make(map[string]*gojsonschema.Schema),
		start:   time.Now(),
		logger:  logger,
	}

	for _, res := range cfg.Registry.List() {
		if len(res.ParamSchema) == 0 {
			continue
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(res.ParamSchema))
		if err != nil {
			return nil, fmt.Errorf("server: compiling parameter schema for %s: %w", res.ID, err)
		}
		s.schemas[res.ID] = schema
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	api := engine.Group("/api/v1")
	api.GET("/discover", s.discover)
	api.GET("/stats", s.stats)
	api.GET("/health", s.health)

	for _, res := range cfg.Registry.List() {
		handler, ok := cfg.Handlers.Lookup(res.ID)
		if !ok {
			return nil, fmt.Errorf("server: no handler registered for resource %s", res.ID)
		}
		if res.Free() {
			engine.Handle(res.Method, res.Path, s.resourceHandler(res, handler))
			continue
		}
		engine.Handle(res.Method, res.Path,
			ginware.Payment(cfg.Gateway, res),
			s.resourceHandler(res, handler))
	}

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"code":  conduit.CodeResourceNotFound,
			"error": "unknown resource",
		})
	})

	s.engine = engine
	return s, nil
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves on addr until the listener fails.
func (s *Server) Run(addr string) error {
	s.logger.Info("conduit marketplace listening",
		"addr", addr, "network", s.cfg.Network, "resources", s.cfg.Registry.Len())
	return s.engine.Run(addr)
}

func (s *Server) discover(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"marketplace":    "Conduit",
		"protocol":       Protocol,
		"version":        Version,
		"network":        s.cfg.Network,
		"facilitator":    s.cfg.Facilitator,
		"paymentAddress": s.cfg.PayTo,
		"totalAPIs":      s.cfg.Registry.Len(),
		"categories":     s.cfg.Registry.Categories(),
		"apis":           s.cfg.Registry.List(),
	})
}

func (s *Server) stats(c *gin.Context) {
	counts := s.cfg.Ledger.CountsByResource()
	usage := make([]gin.H, 0, len(counts))
	for _, res := range s.cfg.Registry.List() {
		if n, ok := counts[res.ID]; ok {
			usage = append(usage, gin.H{"apiId": res.ID, "totalCalls": n})
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"marketplace": "Conduit",
		"uptime":      time.Since(s.start).Seconds(),
		"stats": gin.H{
			"totalAPIs":          s.cfg.Registry.Len(),
			"totalTransactions":  s.cfg.Ledger.Total(),
			"bufferedEntries":    s.cfg.Ledger.Len(),
			"categories":         len(s.cfg.Registry.Categories()),
			"apiUsage":           usage,
			"recentTransactions": s.cfg.Ledger.Recent(recentEntries),
		},
	})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "operational",
		"uptime":    time.Since(s.start).Seconds(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"protocol":  Protocol,
		"network":   s.cfg.Network,
		"apis":      s.cfg.Registry.Len(),
	})
}

// resourceHandler extracts and validates request parameters, then runs the
// resource's generator. It executes after payment authorization, so every
// failure here is a resource failure on an already-billed call.
func (s *Server) resourceHandler(res conduit.ResourceDescriptor, handler handlers.Func) gin.HandlerFunc {
	return func(c *gin.Context) {
		params, err := extractParams(c, res.Method)
		if err != nil {
			s.logger.Warn("unreadable request parameters", "resource", res.ID, "error", err)
			c.JSON(http.StatusBadRequest, gin.H{
				"code":  conduit.CodeHandlerFailure,
				"error": "malformed request parameters",
			})
			return
		}

		if schema, ok := s.schemas[res.ID]; ok {
			result, err := schema.Validate(gojsonschema.NewGoLoader(params))
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{
					"code":  conduit.CodeHandlerFailure,
					"error": "malformed request parameters",
				})
				return
			}
			if !result.Valid() {
				c.JSON(http.StatusBadRequest, gin.H{
					"code":   conduit.CodeHandlerFailure,
					"error":  "invalid request parameters",
					"detail": validationDetail(result),
				})
				return
			}
		}

		payload, err := handler(params)
		if err != nil {
			s.logger.Error("resource handler failed", "resource", res.ID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":  conduit.CodeHandlerFailure,
				"error": "resource handler failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"api": res.Name, "data": payload})
	}
}

func validationDetail(result *gojsonschema.Result) []string {
	detail := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		detail = append(detail, e.String())
	}
	return detail
}

// extractParams collects request parameters into a flat map: query string
// for GET, JSON object body for everything else. An empty body is treated
// as no parameters.
func extractParams(c *gin.Context, method string) (map[string]interface{}, error) {
	params := make(map[string]interface{})
	if method == http.MethodGet {
		for key, values := range c.Request.URL.Query() {
			if len(values) > 0 {
				params[key] = values[0]
			}
		}
		return params, nil
	}

	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return params, nil
	}
	if err := c.ShouldBindJSON(&params); err != nil {
		return nil, err
	}
	return params, nil
}

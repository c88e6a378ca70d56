package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/wbs/internal/priority"
	"github.com/fyrsmithlabs/wbs/internal/scoring"
	"github.com/fyrsmithlabs/wbs/internal/wbs"
)

// Server is an MCP server that runs scoring passes on request.
type Server struct {
	mcp       *mcp.Server
	scoring   *scoring.Service
	parseOpts []wbs.ParseOption
	labels    priority.LabelSet
	metrics   *Metrics
	logger    *zap.Logger
}

// Config configures the MCP server.
type Config struct {
	// Name is the server implementation name (default: "wbs")
	Name string

	// Version is the server version (default: "dev")
	Version string

	// Logger for structured logging
	Logger *zap.Logger

	// Labels is the default quadrant label set for wbs_classify.
	Labels priority.LabelSet

	// StrictOrder rejects outline lines that do not follow their parent.
	StrictOrder bool

	// Metrics overrides the global-meter tool metrics.
	Metrics *Metrics
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:    "wbs",
		Version: "dev",
		Logger:  zap.NewNop(),
	}
}

// NewServer creates a new MCP server backed by svc.
func NewServer(cfg *Config, svc *scoring.Service) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if svc == nil {
		return nil, fmt.Errorf("scoring service is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NewMetrics(logger)
	}

	s := &Server{
		mcp: mcp.NewServer(
			&mcp.Implementation{
				Name:    cfg.Name,
				Version: cfg.Version,
			},
			nil,
		),
		scoring: svc,
		labels:  cfg.Labels,
		metrics: metrics,
		logger:  logger,
	}
	if cfg.StrictOrder {
		s.parseOpts = append(s.parseOpts, wbs.WithStrictOrder())
	}

	s.registerTools()
	return s, nil
}

// Run starts the MCP server on the stdio transport.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting MCP server on stdio transport")
	if err := s.mcp.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}

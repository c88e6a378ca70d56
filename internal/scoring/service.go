package scoring

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/wbs/internal/wbs"
)

const instrumentationName = "github.com/fyrsmithlabs/wbs/internal/scoring"

// Result is the outcome of a full scoring pass.
type Result struct {
	Scores Scores `json:"scores"`

	// Scale is the resolved scale of the own scores.
	Scale Scale `json:"-"`

	// FeatureScored is the number of leaves scored from features.
	FeatureScored int `json:"feature_scored"`

	// Duplicates lists IDs that occur more than once.
	Duplicates []string `json:"duplicates,omitempty"`
}

// Service runs full scoring passes with tracing, metrics and logging.
type Service struct {
	calc   *Calculator
	scale  Scale
	logger *zap.Logger
	tracer trace.Tracer
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithTracer overrides the global tracer.
func WithTracer(t trace.Tracer) ServiceOption {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// NewService creates a scoring service. A nil calculator uses the default
// weights; a nil logger discards output.
func NewService(calc *Calculator, scale Scale, logger *zap.Logger, opts ...ServiceOption) *Service {
	if calc == nil {
		calc = NewCalculator(DefaultWeights())
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		calc:   calc,
		scale:  scale,
		logger: logger,
		tracer: otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Calculator returns the service's leaf calculator.
func (s *Service) Calculator() *Calculator {
	return s.calc
}

// Scale returns the configured scale, which may be ScaleAuto.
func (s *Service) Scale() Scale {
	return s.scale
}

// Run resolves the scale from explicit own scores, derives leaf scores
// from features in that scale, then aggregates the whole forest. Derived
// scores land only in the effective fields, so every call recomputes them
// against the current clock.
func (s *Service) Run(ctx context.Context, roots []*wbs.TaskNode) (*Result, error) {
	_, span := s.tracer.Start(ctx, "scoring.Run")
	defer span.End()
	start := time.Now()

	scale := s.scale.Resolve(roots)
	derived, err := s.calc.Derive(roots, scale)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "feature scoring failed")
		recordPass("error", time.Since(start).Seconds(), 0, 0)
		s.logger.Warn("feature scoring failed", zap.Error(err))
		return nil, err
	}

	featureScored := len(derived)
	scores := AggregateWith(roots, derived)
	res := &Result{
		Scores:        scores,
		Scale:         scale,
		FeatureScored: featureScored,
		Duplicates:    wbs.DuplicateIDs(roots),
	}

	tasks := wbs.Count(roots)
	span.SetAttributes(
		attribute.Int("wbs.tasks", tasks),
		attribute.Int("wbs.feature_scored", featureScored),
		attribute.String("wbs.scale", res.Scale.String()),
	)
	recordPass("success", time.Since(start).Seconds(), tasks, featureScored)

	if len(res.Duplicates) > 0 {
		s.logger.Warn("duplicate task ids in tree", zap.Strings("ids", res.Duplicates))
	}
	s.logger.Debug("scoring pass complete",
		zap.Int("tasks", tasks),
		zap.Int("feature_scored", featureScored),
		zap.Stringer("scale", res.Scale),
		zap.Duration("duration", time.Since(start)),
	)
	return res, nil
}

package translate

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/wah4pc/interop/internal/platform/decision"
	"github.com/wah4pc/interop/internal/platform/fhir"
	"github.com/wah4pc/interop/internal/platform/metrics"
	"github.com/wah4pc/interop/internal/platform/toolbox"
)

// ErrValidation means the translated resource failed conformance checks.
// The issues are logged server-side; the caller only learns that
// validation failed.
var ErrValidation = errors.New("translated resource failed validation")

// DecisionClient selects a translation tool for a payload.
type DecisionClient interface {
	SelectTool(ctx context.Context, sourceFormat, targetFormat string, payload map[string]any, tools []toolbox.Descriptor) (*decision.Selection, error)
}

// Forwarder delivers a validated resource to the target facility.
type Forwarder interface {
	Forward(ctx context.Context, requestID, targetID string, p *fhir.Patient) error
}

// Service runs the four-stage translation pipeline. Stages execute
// strictly in order and the first failure aborts the request; no stage
// ever sees the output of a failed predecessor.
type Service struct {
	decider   DecisionClient
	catalog   *toolbox.Catalog
	validator *fhir.Validator
	forwarder Forwarder
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

func NewService(decider DecisionClient, catalog *toolbox.Catalog, validator *fhir.Validator, forwarder Forwarder, m *metrics.Metrics, logger zerolog.Logger) *Service {
	return &Service{
		decider:   decider,
		catalog:   catalog,
		validator: validator,
		forwarder: forwarder,
		metrics:   m,
		logger:    logger,
	}
}

// Translate executes decision, dispatch, validation and routing for one
// envelope. The returned Patient is set only when all four stages
// succeed.
func (s *Service) Translate(ctx context.Context, requestID string, env *Envelope) (*fhir.Patient, error) {
	log := s.logger.With().
		Str("request_id", requestID).
		Str("source_facility", env.Metadata.SourceFacilityID).
		Str("target_facility", env.Metadata.TargetFacilityID).
		Str("source_format", env.Metadata.SourceFormat).
		Str("target_format", env.Metadata.TargetFormat).
		Logger()

	// Stage 1: ask the reasoning service which tool applies.
	start := time.Now()
	sel, err := s.decider.SelectTool(ctx, env.Metadata.SourceFormat, env.Metadata.TargetFormat, env.Data, s.catalog.Descriptors())
	s.metrics.ObserveDecisionLatency(time.Since(start))
	if err != nil {
		log.Error().Err(err).Msg("tool selection failed")
		s.metrics.IncrementStageFailure("decision")
		s.metrics.IncrementTranslation("error")
		return nil, err
	}
	log.Info().Str("tool", sel.Tool).Msg("tool selected")

	// Stage 2: validate and invoke the selection locally.
	patient, err := s.catalog.Dispatch(toolbox.Selection{Tool: sel.Tool, Arguments: sel.Arguments})
	if err != nil {
		log.Error().Err(err).Str("tool", sel.Tool).Msg("dispatch rejected")
		s.metrics.IncrementStageFailure("dispatch")
		s.metrics.IncrementTranslation("error")
		return nil, err
	}

	// Stage 3: conformance. Issues are logged by the validator; only the
	// verdict travels further.
	if !s.validator.Validate(patient) {
		log.Error().Str("tool", sel.Tool).Msg("translated resource failed validation")
		s.metrics.IncrementStageFailure("validation")
		s.metrics.IncrementTranslation("error")
		return nil, ErrValidation
	}

	// Stage 4: delivery. Unroutable targets are a soft skip inside
	// Forward; only transport failures surface here.
	start = time.Now()
	err = s.forwarder.Forward(ctx, requestID, env.Metadata.TargetFacilityID, patient)
	s.metrics.ObserveForwardLatency(time.Since(start))
	if err != nil {
		log.Error().Err(err).Msg("facility delivery failed")
		s.metrics.IncrementStageFailure("routing")
		s.metrics.IncrementTranslation("error")
		return nil, err
	}

	s.metrics.IncrementTranslation("success")
	log.Info().Msg("translation completed")
	return patient, nil
}

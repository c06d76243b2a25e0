package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"alfredoptarigan/assessment-engine/internal/logger"
)

const DefaultProbeTimeout = 5 * time.Second

// AvailabilityProbe reports whether the generation service is reachable.
type AvailabilityProbe interface {
	Available(ctx context.Context) bool
}

type availabilityProbe struct {
	generator TextGenerator
	timeout   time.Duration
	log       *zap.Logger
}

func NewAvailabilityProbe(generator TextGenerator, timeout time.Duration, log *zap.Logger) AvailabilityProbe {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &availabilityProbe{
		generator: generator,
		timeout:   timeout,
		log:       logger.OrNop(log),
	}
}

func (p *availabilityProbe) Available(ctx context.Context) bool {
	if p.generator == nil {
		return false
	}

	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.generator.Ping(probeCtx); err != nil {
		p.log.Warn("generation service unreachable",
			zap.String(logger.FieldProvider, p.generator.Provider()),
			zap.Error(err),
		)
		return false
	}
	return true
}

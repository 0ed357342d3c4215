package services

import (
	"time"

	"example.com/backstage/services/dairy/internal/metrics"
	"example.com/backstage/services/dairy/internal/models"
	"example.com/backstage/services/dairy/internal/tracing"
)

// Runtime carries the collaborators shared by every service. All date and
// time comparisons use Location.
type Runtime struct {
	Location *time.Location
	Now      func() time.Time
	Tracer   tracing.Tracer
	Metrics  *metrics.Metrics
}

// NewRuntime creates a runtime on the wall clock
func NewRuntime(loc *time.Location, tracer tracing.Tracer, m *metrics.Metrics) Runtime {
	return Runtime{
		Location: loc,
		Now:      time.Now,
		Tracer:   tracer,
		Metrics:  m,
	}
}

// now returns the current instant in the configured zone
func (r Runtime) now() time.Time {
	clock := r.Now
	if clock == nil {
		clock = time.Now
	}
	return clock().In(r.location())
}

// today returns the current calendar day in the configured zone
func (r Runtime) today() time.Time {
	return models.CivilDate(r.now(), r.location())
}

func (r Runtime) location() *time.Location {
	if r.Location == nil {
		return time.UTC
	}
	return r.Location
}

func (r Runtime) tracer() tracing.Tracer {
	if r.Tracer == nil {
		return tracing.Disabled()
	}
	return r.Tracer
}

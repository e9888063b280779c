package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration marks invalid settings: bad periods, year ranges,
	// unknown metrics or unsupported granularities.
	ErrConfiguration = errors.New("configuration error")

	// ErrDataAvailability marks a job whose source files could not be resolved.
	ErrDataAvailability = errors.New("data availability error")

	// ErrAlignment marks future and baseline runs that cannot be paired.
	ErrAlignment = errors.New("alignment error")

	// ErrMissingSelector marks a requested level absent from the source data.
	ErrMissingSelector = errors.New("missing selector")
)

// ConfigurationError describes an invalid setting.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("configuration error: %s", e.Reason)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Key, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// NewConfigurationError builds a ConfigurationError with a formatted reason.
func NewConfigurationError(key, format string, args ...any) error {
	return &ConfigurationError{Key: key, Reason: fmt.Sprintf(format, args...)}
}

// DataAvailabilityError reports a job with no usable source data for a period.
type DataAvailabilityError struct {
	Metric     string
	Role       Role
	Period     string
	Job        string
	Simulation string
	Reason     string
}

func (e *DataAvailabilityError) Error() string {
	return fmt.Sprintf("data availability error: metric %s, %s run, period %s, job %s (%s): %s",
		e.Metric, e.Role, e.Period, e.Job, e.Simulation, e.Reason)
}

func (e *DataAvailabilityError) Unwrap() error { return ErrDataAvailability }

// AlignmentError reports future and baseline job lists that cannot be paired.
type AlignmentError struct {
	Metric     string
	Period     string
	FutureJobs []string
	BaseJobs   []string
	Reason     string
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("alignment error: metric %s, period %s: %s (future jobs [%s], base jobs [%s])",
		e.Metric, e.Period, e.Reason, strings.Join(e.FutureJobs, " "), strings.Join(e.BaseJobs, " "))
}

func (e *AlignmentError) Unwrap() error { return ErrAlignment }

// MissingSelectorError reports a level selector absent from a Field.
type MissingSelectorError struct {
	Field     string
	Dimension string
	Level     int
	Available []int
}

func (e *MissingSelectorError) Error() string {
	if e.Dimension == "" {
		return fmt.Sprintf("missing selector: field %s has no level dimension (requested level %d)", e.Field, e.Level)
	}
	return fmt.Sprintf("missing selector: field %s: %s=%d not in %v", e.Field, e.Dimension, e.Level, e.Available)
}

func (e *MissingSelectorError) Unwrap() error { return ErrMissingSelector }

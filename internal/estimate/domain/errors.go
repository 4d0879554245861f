package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("validation_error")
	ErrCalculationFailed = errors.New("calculation_failed")

	ErrInvalidTakeoff      = errors.New("invalid_takeoff")
	ErrInvalidJobType      = errors.New("invalid_job_type")
	ErrInvalidFinishLevel  = errors.New("invalid_finish_level")
	ErrInvalidZipCode      = errors.New("invalid_zip_code")
	ErrMissingUserSettings = errors.New("missing_user_settings")
	ErrInvalidUserSettings = errors.New("invalid_user_settings")
)

// ValidationError rejects a request before any lookup is made.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() []error {
	return []error{e.Err, ErrValidation}
}

func newValidationError(field string, err error) *ValidationError {
	return &ValidationError{Field: field, Err: err}
}

// Stage names a step of the calculation pipeline.
type Stage string

const (
	StageValidating        Stage = "validating"
	StageLocationResolved  Stage = "location_resolved"
	StageAssembliesMatched Stage = "assemblies_matched"
	StageComponentsPriced  Stage = "components_priced"
	StageAggregated        Stage = "aggregated"
	StageMarkupApplied     Stage = "markup_applied"
	StageDone              Stage = "done"
)

// CalculationError wraps any failure after validation. No partial estimate accompanies it.
type CalculationError struct {
	Stage Stage
	Err   error
}

func (e *CalculationError) Error() string {
	return fmt.Sprintf("estimate calculation failed at %s: %v", e.Stage, e.Err)
}

func (e *CalculationError) Unwrap() []error {
	return []error{e.Err, ErrCalculationFailed}
}

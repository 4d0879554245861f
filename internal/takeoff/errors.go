package takeoff

import "errors"

var (
	ErrNilTakeoff           = errors.New("nil_takeoff")
	ErrInvalidArea          = errors.New("invalid_area")
	ErrInvalidModifier      = errors.New("invalid_modifier")
	ErrUnsupportedVersion   = errors.New("unsupported_enhancement_version")
	ErrInvalidAdjustment    = errors.New("invalid_area_adjustment")
	ErrInvalidAccessibility = errors.New("invalid_accessibility")
)

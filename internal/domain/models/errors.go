package models

import (
	"errors"
	"fmt"
)

var (
	ErrCatalogLoad    = errors.New("catalog load failed")
	ErrHistoricalLoad = errors.New("historical load failed")
	ErrIndicatorLoad  = errors.New("indicator load failed")
	ErrForecastLoad   = errors.New("forecast load failed")

	ErrUnknownInstrument = errors.New("unknown instrument")
	ErrNoInstrument      = errors.New("no instrument selected")
)

// LoadError is a fetch failure scoped to one resource. It matches the
// resource's sentinel with errors.Is and unwraps to the transport error.
type LoadError struct {
	Resource Resource
	Code     string
	Horizon  Horizon
	Err      error
}

// NewLoadError wraps err for resource r.
func NewLoadError(r Resource, code string, h Horizon, err error) *LoadError {
	return &LoadError{Resource: r, Code: code, Horizon: h, Err: err}
}

func (e *LoadError) Error() string {
	switch {
	case e.Code == "":
		return fmt.Sprintf("%s: %v", e.sentinel(), e.Err)
	case e.Horizon != "":
		return fmt.Sprintf("%s for %s (%s): %v", e.sentinel(), e.Code, e.Horizon, e.Err)
	default:
		return fmt.Sprintf("%s for %s: %v", e.sentinel(), e.Code, e.Err)
	}
}

func (e *LoadError) Unwrap() error { return e.Err }

// Is matches the resource sentinel.
func (e *LoadError) Is(target error) bool {
	return target == e.sentinel()
}

func (e *LoadError) sentinel() error {
	switch e.Resource {
	case ResourceCatalog:
		return ErrCatalogLoad
	case ResourceHistory:
		return ErrHistoricalLoad
	case ResourceIndicators:
		return ErrIndicatorLoad
	case ResourceForecast:
		return ErrForecastLoad
	default:
		return errors.New("load failed")
	}
}

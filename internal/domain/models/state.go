package models

// Resource names one independently fetched piece of dashboard state.
type Resource string

const (
	ResourceCatalog    Resource = "catalog"
	ResourceHistory    Resource = "history"
	ResourceIndicators Resource = "indicators"
	ResourceForecast   Resource = "forecast"
)

// ResourceStatus is the lifecycle of one fetched resource.
type ResourceStatus string

const (
	StatusIdle    ResourceStatus = "idle"
	StatusLoading ResourceStatus = "loading"
	StatusLoaded  ResourceStatus = "loaded"
	StatusFailed  ResourceStatus = "failed"
)

// Selection is what the user currently has chosen.
type Selection struct {
	Instrument *InstrumentOption
	Horizon    Horizon
}

// HasInstrument reports whether an instrument is selected.
func (s Selection) HasInstrument() bool { return s.Instrument != nil }

// Code returns the selected instrument code or "".
func (s Selection) Code() string {
	if s.Instrument == nil {
		return ""
	}
	return s.Instrument.Code
}

// ResourceState holds the status and last error of one resource.
type ResourceState struct {
	Status ResourceStatus
	Err    error
}

// DashboardState is an immutable snapshot of everything the presentation
// layer renders. Slices are owned by the snapshot.
type DashboardState struct {
	Version uint64

	Catalog      []InstrumentOption
	CatalogState ResourceState

	Selection Selection

	History      []HistoricalPoint
	HistoryState ResourceState

	Indicators      *IndicatorSnapshot
	IndicatorsState ResourceState

	Forecast      []ForecastPoint
	ForecastState ResourceState

	Merged []MergedSeriesPoint
}

package models

import "fmt"

// Horizon is the forward window a forecast is requested for.
type Horizon string

const (
	HorizonWeek  Horizon = "week"
	HorizonMonth Horizon = "month"
	HorizonYear  Horizon = "year"

	DefaultHorizon = HorizonMonth
)

// Horizons lists every horizon in display order.
var Horizons = []Horizon{HorizonWeek, HorizonMonth, HorizonYear}

// ParseHorizon maps a request token to a Horizon.
func ParseHorizon(s string) (Horizon, error) {
	switch h := Horizon(s); h {
	case HorizonWeek, HorizonMonth, HorizonYear:
		return h, nil
	default:
		return "", fmt.Errorf("unknown horizon %q", s)
	}
}

// Label returns the display name of h.
func (h Horizon) Label() string {
	switch h {
	case HorizonWeek:
		return "1 Week"
	case HorizonMonth:
		return "1 Month"
	case HorizonYear:
		return "1 Year"
	default:
		return string(h)
	}
}

// Token is the value sent as the forecast period query parameter.
func (h Horizon) Token() string { return string(h) }

// Next cycles through Horizons.
func (h Horizon) Next() Horizon {
	for i, v := range Horizons {
		if v == h {
			return Horizons[(i+1)%len(Horizons)]
		}
	}
	return DefaultHorizon
}

package strava

import "time"

// ActivityMetrics is the reduced projection of one upstream activity record
// handed back to the assistant host. Optional fields are pointers and omitted
// when the upstream doesn't provide them (no heart rate monitor, no cadence
// sensor). Distances are meters, times are seconds, speeds are meters/second
// as returned by the API.
type ActivityMetrics struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	Type               string    `json:"type"`
	StartDate          time.Time `json:"start_date"`
	Distance           float64   `json:"distance"`
	MovingTime         int       `json:"moving_time"`
	TotalElevationGain float64   `json:"total_elevation_gain"`
	AverageSpeed       float64   `json:"average_speed"`
	MaxSpeed           float64   `json:"max_speed"`
	AverageHeartrate   *float64  `json:"average_heartrate,omitempty"`
	AverageCadence     *float64  `json:"average_cadence,omitempty"`
}

// ActivityDetail extends ActivityMetrics with fields only present on the
// single-activity endpoint.
type ActivityDetail struct {
	ActivityMetrics
	Description string   `json:"description,omitempty"`
	Calories    *float64 `json:"calories,omitempty"`
	DeviceName  string   `json:"device_name,omitempty"`
}

// Athlete is the authenticated athlete's profile projection.
type Athlete struct {
	ID                    int64  `json:"id"`
	Firstname             string `json:"firstname"`
	Lastname              string `json:"lastname"`
	City                  string `json:"city,omitempty"`
	State                 string `json:"state,omitempty"`
	Country               string `json:"country,omitempty"`
	MeasurementPreference string `json:"measurement_preference,omitempty"`
}

// StatsTotals aggregates one bucket of the athlete stats response
// (recent / year-to-date / all-time, per sport).
type StatsTotals struct {
	Count         int     `json:"count"`
	Distance      float64 `json:"distance"`
	MovingTime    int     `json:"moving_time"`
	ElapsedTime   int     `json:"elapsed_time"`
	ElevationGain float64 `json:"elevation_gain"`
}

// AthleteStats is the projection of the athlete stats endpoint.
type AthleteStats struct {
	RecentRideTotals StatsTotals `json:"recent_ride_totals"`
	RecentRunTotals  StatsTotals `json:"recent_run_totals"`
	RecentSwimTotals StatsTotals `json:"recent_swim_totals"`
	YTDRideTotals    StatsTotals `json:"ytd_ride_totals"`
	YTDRunTotals     StatsTotals `json:"ytd_run_totals"`
	YTDSwimTotals    StatsTotals `json:"ytd_swim_totals"`
	AllRideTotals    StatsTotals `json:"all_ride_totals"`
	AllRunTotals     StatsTotals `json:"all_run_totals"`
	AllSwimTotals    StatsTotals `json:"all_swim_totals"`
}

// RouteSummary is the reduced projection of one saved route.
type RouteSummary struct {
	ID                  int64   `json:"id"`
	Name                string  `json:"name"`
	Distance            float64 `json:"distance"`
	ElevationGain       float64 `json:"elevation_gain"`
	EstimatedMovingTime int     `json:"estimated_moving_time,omitempty"`
}

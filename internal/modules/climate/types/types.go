package types

// PrecipitationRecord is one row of /api/v1.0/precipitation. Prcp is null when the station
// reported no precipitation value for the day.
type PrecipitationRecord struct {
	Date string   `json:"date"`
	Prcp *float64 `json:"prcp"`
}

type StationRecord struct {
	Station string `json:"station"`
}

type TemperatureRecord struct {
	Date string  `json:"date"`
	Tobs float64 `json:"tobs"`
}

// TemperatureStats summarizes observed temperatures over a date range. Avg is rounded to
// two decimals.
type TemperatureStats struct {
	Min float64 `json:"Min"`
	Max float64 `json:"Max"`
	Avg float64 `json:"Avg"`
}

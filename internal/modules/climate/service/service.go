package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"climate-server/internal/modules/climate/repository"
	"climate-server/internal/modules/climate/types"
)

// DateLayout is the only accepted date format, both in URLs and in the store.
const DateLayout = "2006-01-02"

// yearOffset is a fixed 365 days; leap years are not special-cased.
const yearOffset = 365 * 24 * time.Hour

// NoRecordsMessage is the body returned when a date range matches no observations.
const NoRecordsMessage = "Given date returned no records. Please try different date."

var (
	ErrInvalidDateFormat = errors.New("invalid date format")
	ErrEmptyDataset      = errors.New("dataset has no observations")
)

// DateError reports which date parameter failed to parse.
type DateError struct {
	Param string
	Value string
}

func (e *DateError) Error() string {
	return fmt.Sprintf("%s %q: expected YYYY-MM-DD", e.Param, e.Value)
}

func (e *DateError) Unwrap() error { return ErrInvalidDateFormat }

// ParseDate parses value with DateLayout. param names the value in the returned *DateError.
func ParseDate(param, value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, &DateError{Param: param, Value: value}
	}
	return t, nil
}

type Service struct {
	repository repository.ClimateRepository
}

func NewService(repository repository.ClimateRepository) *Service {
	return &Service{repository: repository}
}

// OneYearBeforeMostRecent returns the most recent observation date minus 365 days.
func (s *Service) OneYearBeforeMostRecent(ctx context.Context) (time.Time, error) {
	latest, ok, err := s.repository.GetMostRecentDate(ctx)
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return time.Time{}, ErrEmptyDataset
	}
	t, err := time.Parse(DateLayout, latest)
	if err != nil {
		return time.Time{}, fmt.Errorf("stored observation date %q: %w", latest, ErrInvalidDateFormat)
	}
	return t.Add(-yearOffset), nil
}

// MostFrequentStation returns the station with the most observations. Ties go to the
// lexicographically smallest identifier.
func (s *Service) MostFrequentStation(ctx context.Context) (string, error) {
	ids, err := s.repository.GetStationIDs(ctx)
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", ErrEmptyDataset
	}
	counts := make(map[string]int, 16)
	for _, id := range ids {
		counts[id]++
	}
	var best string
	bestCount := 0
	for id, n := range counts {
		if n > bestCount || (n == bestCount && id < best) {
			best, bestCount = id, n
		}
	}
	return best, nil
}

func (s *Service) Precipitation(ctx context.Context) ([]types.PrecipitationRecord, error) {
	cutoff, err := s.OneYearBeforeMostRecent(ctx)
	if err != nil {
		return nil, err
	}
	return s.repository.GetPrecipitation(ctx, repository.Filter{After: cutoff.Format(DateLayout)})
}

// Stations returns each distinct station once, in first-seen order.
func (s *Service) Stations(ctx context.Context) ([]types.StationRecord, error) {
	ids, err := s.repository.GetStationIDs(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, 16)
	out := make([]types.StationRecord, 0, 16)
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, types.StationRecord{Station: id})
	}
	return out, nil
}

// TemperatureObservations returns the most frequent station's temperatures after the
// one-year cutoff.
func (s *Service) TemperatureObservations(ctx context.Context) ([]types.TemperatureRecord, error) {
	station, err := s.MostFrequentStation(ctx)
	if err != nil {
		return nil, err
	}
	cutoff, err := s.OneYearBeforeMostRecent(ctx)
	if err != nil {
		return nil, err
	}
	return s.repository.GetTemperatures(ctx, repository.Filter{
		After:     cutoff.Format(DateLayout),
		StationID: station,
	})
}

// RangeStats summarizes temperatures dated after start and, when end is non-empty, on or
// before end. ok is false when nothing matched.
func (s *Service) RangeStats(ctx context.Context, start, end string) (stats types.TemperatureStats, ok bool, err error) {
	from, err := ParseDate("start_date", start)
	if err != nil {
		return types.TemperatureStats{}, false, err
	}
	f := repository.Filter{After: from.Format(DateLayout)}
	if end != "" {
		through, err := ParseDate("end_date", end)
		if err != nil {
			return types.TemperatureStats{}, false, err
		}
		f.Through = through.Format(DateLayout)
	}

	values, err := s.repository.GetTemperatureValues(ctx, f)
	if err != nil {
		return types.TemperatureStats{}, false, err
	}
	if len(values) == 0 {
		return types.TemperatureStats{}, false, nil
	}
	return summarize(values), true, nil
}

// summarize rounds Avg to two decimals with exact halves going to the even digit.
func summarize(values []float64) types.TemperatureStats {
	lo, hi, sum := values[0], values[0], 0.0
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
		sum += v
	}
	return types.TemperatureStats{
		Min: lo,
		Max: hi,
		Avg: math.RoundToEven(sum/float64(len(values))*100) / 100,
	}
}

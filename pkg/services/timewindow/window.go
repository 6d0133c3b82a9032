package timewindow

import (
	"fmt"
	"strings"
	"time"

	"github.com/de-tools/umami-digest/pkg/models/domain"
)

const (
	DayLayout = "2006-01-02"

	Yesterday = "yesterday"
	Today     = "today"
)

// LoadLocation resolves an IANA timezone name, treating an empty name as UTC.
func LoadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, &domain.ConfigError{Field: "timezone", Msg: fmt.Sprintf("unknown timezone %q", name)}
	}
	return loc, nil
}

// Compute returns the local-midnight window of day in tzName. An empty day means yesterday
// relative to now in that timezone.
func Compute(tzName, day string, now time.Time) (domain.TimeWindow, error) {
	loc, err := LoadLocation(tzName)
	if err != nil {
		return domain.TimeWindow{}, err
	}

	y, m, d, err := resolveDay(strings.TrimSpace(day), now.In(loc), loc)
	if err != nil {
		return domain.TimeWindow{}, err
	}

	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	// Normalizes month/year rollover and yields 23h/25h days across DST changes.
	end := time.Date(y, m, d+1, 0, 0, 0, 0, loc)

	return domain.TimeWindow{
		Day:        start.Format(DayLayout),
		Timezone:   loc.String(),
		LocalStart: start,
		LocalEnd:   end,
	}, nil
}

func resolveDay(day string, localNow time.Time, loc *time.Location) (int, time.Month, int, error) {
	switch strings.ToLower(day) {
	case "", Yesterday:
		y, m, d := localNow.Date()
		prev := time.Date(y, m, d-1, 12, 0, 0, 0, loc)
		y, m, d = prev.Date()
		return y, m, d, nil
	case Today:
		y, m, d := localNow.Date()
		return y, m, d, nil
	}

	parsed, err := time.ParseInLocation(DayLayout, day, loc)
	if err != nil {
		return 0, 0, 0, &domain.ConfigError{
			Field: "date",
			Msg:   fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", day),
		}
	}
	y, m, d := parsed.Date()
	return y, m, d, nil
}

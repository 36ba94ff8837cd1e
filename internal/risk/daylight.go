package risk

import (
	"fmt"
	"math"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sj14/astral/pkg/astral"
)

// Phase is the light phase at a location. Bears are most active around
// twilight.
type Phase string

const (
	PhaseDay      Phase = "DAY"
	PhaseTwilight Phase = "TWILIGHT"
	PhaseNight    Phase = "NIGHT"
)

// JST is used to pick the calendar day for sun calculations
var JST = time.FixedZone("JST", 9*60*60)

// SunEventTimes holds the sun events of one day in UTC
type SunEventTimes struct {
	CivilDawn time.Time
	Sunrise   time.Time
	Sunset    time.Time
	CivilDusk time.Time
}

// SunCalc calculates and caches sun events per day and location. Locations
// are bucketed to 0.1 degree, which moves the events by well under a minute.
type SunCalc struct {
	cache *cache.Cache
}

// NewSunCalc creates a calculator whose cache entries live for two days
func NewSunCalc() *SunCalc {
	return &SunCalc{cache: cache.New(48*time.Hour, 6*time.Hour)}
}

// Phase returns the light phase at lat/lng at time t. The neighbouring
// days are checked too since UTC event times for Japan straddle midnight.
func (sc *SunCalc) Phase(lat, lng float64, t time.Time) (Phase, error) {
	phase := PhaseNight
	for _, offset := range []int{-1, 0, 1} {
		ev, err := sc.GetSunEventTimes(lat, lng, t.AddDate(0, 0, offset))
		if err != nil {
			return "", err
		}
		switch {
		case !t.Before(ev.Sunrise) && t.Before(ev.Sunset):
			return PhaseDay, nil
		case !t.Before(ev.CivilDawn) && t.Before(ev.CivilDusk):
			phase = PhaseTwilight
		}
	}
	return phase, nil
}

// GetSunEventTimes returns the sun events for the JST day containing t
func (sc *SunCalc) GetSunEventTimes(lat, lng float64, t time.Time) (SunEventTimes, error) {
	lat = math.Round(lat*10) / 10
	lng = math.Round(lng*10) / 10
	day := t.In(JST)
	date := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	key := fmt.Sprintf("%s:%.1f:%.1f", date.Format(time.DateOnly), lat, lng)

	if v, ok := sc.cache.Get(key); ok {
		return v.(SunEventTimes), nil
	}

	times, err := calculateSunEventTimes(astral.Observer{Latitude: lat, Longitude: lng}, date)
	if err != nil {
		return SunEventTimes{}, err
	}
	sc.cache.SetDefault(key, times)
	return times, nil
}

func calculateSunEventTimes(observer astral.Observer, date time.Time) (SunEventTimes, error) {
	civilDawn, err := astral.Dawn(observer, date, astral.DepressionCivil)
	if err != nil {
		return SunEventTimes{}, fmt.Errorf("failed to calculate civil dawn: %w", err)
	}
	sunrise, err := astral.Sunrise(observer, date)
	if err != nil {
		return SunEventTimes{}, fmt.Errorf("failed to calculate sunrise: %w", err)
	}
	sunset, err := astral.Sunset(observer, date)
	if err != nil {
		return SunEventTimes{}, fmt.Errorf("failed to calculate sunset: %w", err)
	}
	civilDusk, err := astral.Dusk(observer, date, astral.DepressionCivil)
	if err != nil {
		return SunEventTimes{}, fmt.Errorf("failed to calculate civil dusk: %w", err)
	}
	return SunEventTimes{
		CivilDawn: civilDawn,
		Sunrise:   sunrise,
		Sunset:    sunset,
		CivilDusk: civilDusk,
	}, nil
}

package risk

import (
	"time"

	"github.com/tphakala/bearwatch/internal/logger"
	"github.com/tphakala/bearwatch/internal/sighting"
)

// Evaluator wraps Evaluate with the daylight phase at the user's location
type Evaluator struct {
	config Config
	sun    *SunCalc
	log    logger.Logger
}

// NewEvaluator creates an evaluator
func NewEvaluator(config Config) *Evaluator {
	return &Evaluator{
		config: config.withDefaults(),
		sun:    NewSunCalc(),
		log:    logger.Global().Module("risk"),
	}
}

// Evaluate classifies user against snap at time now
func (e *Evaluator) Evaluate(snap sighting.Snapshot, user sighting.Point, now time.Time) Result {
	res := Evaluate(snap.Sightings, user, e.config)

	phase, err := e.sun.Phase(user.Lat, user.Lng, now)
	if err != nil {
		// astral fails only near the poles where the sun may not set
		e.log.Debug("Daylight phase unavailable",
			logger.Float64("lat", user.Lat),
			logger.Float64("lng", user.Lng),
			logger.Error(err))
		return res
	}
	res.Daylight = phase
	return res
}

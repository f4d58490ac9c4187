package scheduler

import (
	"math"

	"github.com/flashgrid/srscore/internal/model"
)

// NextIvl reports what answering c with ease would produce, without
// mutating anything — kept alongside the real answer path so preview and
// actual scheduling share the same arithmetic by construction.
func (s *Scheduler) NextIvl(c *model.Card, ease int) int64 {
	switch {
	case c.Queue == model.QueueReview:
		if ease == model.EaseAgain {
			return s.previewLapse(c)
		}
		return s.fuzzedIvl(s.nextRevIvl(c, ease, s.Today()))
	default:
		return s.previewLearning(c, ease)
	}
}

func (s *Scheduler) previewLearning(c *model.Card, ease int) int64 {
	switch ease {
	case 3: // Easy, 3-button learning layout
		return s.graduatingInterval(c, true, false)
	case 2: // Good, 3-button learning layout
		delays := s.lrnDelays(c)
		left := stepsLeft(c.Left) - 1
		if left <= 0 {
			return s.graduatingInterval(c, false, false)
		}
		return -int64(delayForLeft(delays, left) * 60)
	default: // Again
		delays := s.lrnDelays(c)
		return -int64(delaysOrFallback(delays) * 60)
	}
}

func (s *Scheduler) previewLapse(c *model.Card) int64 {
	conf := s.lapseConf(c)
	if len(conf.Delays) == 0 {
		newIvl := int64(math.Floor(float64(c.Ivl) * conf.Mult))
		if newIvl < conf.MinInt {
			newIvl = conf.MinInt
		}
		return -newIvl * 86400
	}
	return -int64(conf.Delays[0] * 60)
}

package scheduler

import (
	"math"

	"github.com/flashgrid/srscore/internal/model"
)

// ButtonCount returns how many grade buttons apply to card c: three while
// it's in a learning state (no Hard/Easy split), four once it's a mature
// review card.
func ButtonCount(c *model.Card) int {
	if c.Queue == model.QueueLearning || c.Queue == model.QueueDayLearning {
		return 3
	}
	return 4
}

// graduatingInterval picks the interval a card gets when it graduates out
// of learning: the relearn card's prior interval on a lapse, or the
// deck's configured "good"/"easy" graduating interval otherwise.
func (s *Scheduler) graduatingInterval(c *model.Card, early, lapse bool) int64 {
	conf := s.newConf(c)
	if lapse {
		if c.Filtered() && s.resched(c) {
			return s.dynIvlBoost(c, s.Today())
		}
		return c.Ivl
	}
	ideal := conf.Ints[0]
	if early && len(conf.Ints) > 1 {
		ideal = conf.Ints[1]
	}
	return s.fuzzedIvl(ideal)
}

// rescheduleAsReview graduates a learning card into the Review queue,
// computing its initial interval and factor (or restoring its prior
// interval, on a lapsed relearn card).
func (s *Scheduler) rescheduleAsReview(c *model.Card, early bool) {
	lapse := c.Type == model.TypeReview
	today := s.Today()

	if lapse {
		if s.resched(c) {
			due := today + 1
			if c.OriginalDue > due {
				due = c.OriginalDue
			}
			c.Due = due
		} else {
			c.Due = c.OriginalDue
		}
		c.OriginalDue = 0
	} else {
		c.Ivl = s.graduatingInterval(c, early, false)
		c.Due = today + c.Ivl
		c.Factor = s.newConf(c).InitialFactor
	}

	c.Queue = model.QueueReview
	c.Type = model.TypeReview

	if c.Filtered() {
		s.returnToOrigin(c, lapse)
	}
}

func delaysOrFallback(delays []float64) float64 {
	if len(delays) > 0 {
		return delays[0]
	}
	return 1
}

// delayForLeft returns the learning-step delay for the step `left` steps
// remain, counting from the end of delays, falling back to the first
// delay (or 1 minute) if left is out of range.
func delayForLeft(delays []float64, left int64) float64 {
	idx := len(delays) - int(left)
	if idx < 0 || idx >= len(delays) {
		return delaysOrFallback(delays)
	}
	return delays[idx]
}

// answerLearningCard grades a card currently in a learning or relearning
// state, either advancing it to the next step, graduating it into Review,
// or resetting it to the first step on Again.
func (s *Scheduler) answerLearningCard(c *model.Card, ease int) *model.RevlogEntry {
	wasFiltered := c.Filtered()
	wasReview := c.Type == model.TypeReview

	switch ease {
	case 3: // Easy=3 in the 3-button learning layout
		s.rescheduleAsReview(c, true)
	case 2: // Good
		delays := s.lrnDelays(c)
		left := stepsLeft(c.Left) - 1
		if left <= 0 {
			s.rescheduleAsReview(c, false)
		} else {
			tod := s.leftToday(delays, int(left))
			c.Left = left + tod*1000
			overdue := s.nowUnix() > c.Due
			delaySecs := delayForLeft(delays, left) * 60
			if overdue {
				delaySecs *= 1.0 + s.Rand.Float64()*0.25
			}
			c.Due = s.nowUnix() + int64(delaySecs)
			s.enqueueLearning(c)
		}
	case model.EaseAgain: // Again=1
		c.Left = s.startingLeft(c)
		if wasReview && s.resched(c) {
			lc := s.lapseConf(c)
			if lc.Mult > 0 {
				newIvl := int64(math.Floor(float64(c.Ivl) * lc.Mult))
				if newIvl < 1 {
					newIvl = 1
				}
				if newIvl < lc.MinInt {
					newIvl = lc.MinInt
				}
				c.Ivl = newIvl
			}
		}
		if wasFiltered {
			c.OriginalDue = s.Today() + 1
		}
		delays := s.lrnDelays(c)
		c.Due = s.nowUnix() + int64(delaysOrFallback(delays)*60)
		s.enqueueLearning(c)
	}

	revType := model.RevLearning
	switch {
	case wasFiltered && c.Filtered():
		revType = model.RevCram
	case wasReview:
		revType = model.RevRelearn
	}

	return &model.RevlogEntry{
		CardID: c.ID,
		Ease:   ease,
		Ivl:    c.Ivl,
		Factor: c.Factor,
		Type:   revType,
	}
}

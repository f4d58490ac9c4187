package scheduler

import (
	"math"

	"github.com/flashgrid/srscore/internal/model"
)

// constrain applies the deck's interval-factor multiplier to a candidate
// interval, then floors the result to at least one day past prev.
func constrain(newIvl float64, ivlFct float64, prev int64) int64 {
	v := newIvl * ivlFct
	if f := float64(prev + 1); f > v {
		v = f
	}
	return int64(math.Floor(v))
}

// nextRevIvl computes the candidate interval for each of the three mature
// review grades (Hard/Good/Easy).
func (s *Scheduler) nextRevIvl(c *model.Card, ease int, today int64) int64 {
	conf := s.revConf(c)
	effDue := c.Due
	if c.Filtered() {
		effDue = c.OriginalDue
	}
	delay := today - effDue
	if delay < 0 {
		delay = 0
	}

	ivl2 := constrain((float64(c.Ivl)+float64(delay)/4)*conf.HardFactor, conf.IvlFct, c.Ivl)
	ivl3 := constrain((float64(c.Ivl)+float64(delay)/2)*(float64(c.Factor)/1000), conf.IvlFct, ivl2)
	ivl4 := constrain((float64(c.Ivl)+float64(delay))*(float64(c.Factor)/1000)*conf.Ease4, conf.IvlFct, ivl3)

	var out int64
	switch ease {
	case model.EaseHard:
		out = ivl2
	case model.EaseGood:
		out = ivl3
	case model.EaseEasy:
		out = ivl4
	}
	if out > conf.MaxIvl {
		out = conf.MaxIvl
	}
	return out
}

// updateReviewInterval applies the non-lapse review-answer arithmetic.
func (s *Scheduler) updateReviewInterval(c *model.Card, ease int) {
	today := s.Today()
	newIvl := s.fuzzedIvl(s.nextRevIvl(c, ease, today))
	if newIvl < c.Ivl+1 {
		newIvl = c.Ivl + 1
	}
	conf := s.revConf(c)
	if newIvl > conf.MaxIvl {
		newIvl = conf.MaxIvl
	}
	c.Ivl = newIvl
	c.Due = today + c.Ivl
}

var easeFactorDelta = map[int]int64{
	model.EaseHard: -150,
	model.EaseGood: 0,
	model.EaseEasy: 150,
}

// answerReviewCard grades a mature review card: Again lapses it, the
// other three grades advance its interval and ease factor.
func (s *Scheduler) answerReviewCard(c *model.Card, ease int) *model.RevlogEntry {
	if ease == model.EaseAgain {
		return s.rescheduleLapse(c)
	}

	lastIvl := c.Ivl
	if s.resched(c) {
		s.updateReviewInterval(c, ease)
		c.Factor += easeFactorDelta[ease]
		if c.Factor < model.FactorMin {
			c.Factor = model.FactorMin
		}
	} else {
		c.Due = c.OriginalDue
	}

	if c.Filtered() {
		s.returnToOrigin(c, false)
	}

	return &model.RevlogEntry{
		CardID:  c.ID,
		Ease:    ease,
		Ivl:     c.Ivl,
		LastIvl: lastIvl,
		Factor:  c.Factor,
		Type:    model.RevReview,
	}
}

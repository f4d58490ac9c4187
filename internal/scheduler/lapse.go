package scheduler

import (
	"math"

	"github.com/flashgrid/srscore/internal/model"
)

// rescheduleLapse demotes a review card that was answered Again: its
// interval shrinks and ease factor drops, a leech check runs, and unless
// it's suspended as a leech it re-enters the learning queue.
func (s *Scheduler) rescheduleLapse(c *model.Card) *model.RevlogEntry {
	conf := s.lapseConf(c)
	lastIvl := c.Ivl

	if s.resched(c) {
		c.Lapses++
		newIvl := int64(math.Floor(float64(c.Ivl) * conf.Mult))
		if newIvl < conf.MinInt {
			newIvl = conf.MinInt
		}
		c.Ivl = newIvl
		c.Due = s.Today() + c.Ivl
		if c.Filtered() {
			c.OriginalDue = c.Due
		}
		c.Factor -= 200
		if c.Factor < model.FactorMin {
			c.Factor = model.FactorMin
		}
	}

	entry := &model.RevlogEntry{
		CardID:  c.ID,
		Ease:    model.EaseAgain,
		LastIvl: lastIvl,
		Factor:  c.Factor,
		Type:    model.RevRelearn,
	}

	if leeched := s.checkLeech(c); leeched && conf.LeechAction == model.LeechSuspend {
		entry.Ivl = 0
		return entry
	}

	if len(conf.Delays) == 0 {
		entry.Ivl = -int64(c.Ivl) * 86400
		return entry
	}

	if c.OriginalDue == 0 {
		c.OriginalDue = c.Due
	}
	delay := int64(conf.Delays[0] * 60)
	c.Due = s.nowUnix() + delay
	c.Left = s.startingLeft(c)
	s.enqueueLearning(c)

	entry.Ivl = -delay
	return entry
}

// enqueueLearning places c in the learning or day-learning queue/state
// depending on whether its due crosses today's cutoff.
func (s *Scheduler) enqueueLearning(c *model.Card) {
	if c.Due < s.DayCutoff() {
		c.Queue = model.QueueLearning
		s.insertIntoLearnQueue(c)
	} else {
		days := int64(math.Ceil(float64(c.Due-s.DayCutoff()) / 86400))
		c.Due = s.Today() + days
		c.Queue = model.QueueDayLearning
	}
}

// insertIntoLearnQueue keeps the in-memory learn queue sorted by due and
// bumps c's due by one second if it would tie with the current head,
// avoiding back-to-back presentation of the same card.
func (s *Scheduler) insertIntoLearnQueue(c *model.Card) {
	if len(s.learnQueue) > 0 && s.learnQueue[0].Due == c.Due {
		c.Due++
	}
	s.learnQueue = append(s.learnQueue, c)
	for i := len(s.learnQueue) - 1; i > 0 && s.learnQueue[i-1].Due > s.learnQueue[i].Due; i-- {
		s.learnQueue[i-1], s.learnQueue[i] = s.learnQueue[i], s.learnQueue[i-1]
	}
}

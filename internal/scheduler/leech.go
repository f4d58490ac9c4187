package scheduler

import "github.com/flashgrid/srscore/internal/model"

const leechTag = "leech"

// checkLeech tags c's note as a leech once its lapse count crosses the
// deck's threshold, and repeats every half-threshold lapses after that.
// Returns whether the leech threshold triggered on this call
// (rescheduleLapse uses it to skip relearning for a card it just
// suspended).
func (s *Scheduler) checkLeech(c *model.Card) bool {
	conf := s.lapseConf(c)
	if conf.LeechFails == 0 || c.Lapses < conf.LeechFails {
		return false
	}
	threshold := conf.LeechFails / 2
	if threshold < 1 {
		threshold = 1
	}
	if (c.Lapses-conf.LeechFails)%threshold != 0 {
		return false
	}

	note, err := s.Store.GetNote(c.NoteID)
	if err != nil {
		return false
	}
	note.AddTag(leechTag)
	_ = s.Store.UpdateNote(note)

	if conf.LeechAction == model.LeechSuspend {
		if c.Filtered() {
			s.returnToOrigin(c, true)
		}
		c.Suspend()
	}
	return true
}

package scheduler

import "github.com/flashgrid/srscore/internal/model"

// burySiblings removes every other card sharing c.NoteID that is in the
// New queue, or in Review with due<=today, from the in-memory queues, and
// persists it as Buried if the matching config flag is set.
func (s *Scheduler) burySiblings(c *model.Card) error {
	newConf := s.newConf(c)
	revConf := s.revConf(c)

	siblings, err := s.Store.CardsForNote(c.NoteID)
	if err != nil {
		return err
	}
	today := s.Today()

	toBury := map[int64]bool{}
	for _, sib := range siblings {
		if sib.ID == c.ID {
			continue
		}
		switch {
		case sib.Queue == model.QueueNew:
			toBury[sib.ID] = true
			if newConf.Bury || s.Conf.NewBury {
				sib.Bury()
				_ = s.Store.UpdateCard(sib)
			}
		case sib.Queue == model.QueueReview && sib.Due <= today:
			toBury[sib.ID] = true
			if revConf.Bury {
				sib.Bury()
				_ = s.Store.UpdateCard(sib)
			}
		}
	}
	if len(toBury) == 0 {
		return nil
	}

	s.newQueue = removeCards(s.newQueue, toBury)
	s.revQueue = removeCards(s.revQueue, toBury)
	return nil
}

func removeCards(q []*model.Card, ids map[int64]bool) []*model.Card {
	out := q[:0]
	for _, c := range q {
		if !ids[c.ID] {
			out = append(out, c)
		}
	}
	return out
}

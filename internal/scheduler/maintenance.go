package scheduler

import (
	"fmt"
	"sort"

	"github.com/flashgrid/srscore/internal/model"
)

// ForgetCards resets cards to New and appends them to the end of the new
// queue.
func (s *Scheduler) ForgetCards(ids []int64) error {
	for _, id := range ids {
		c, err := s.Store.GetCard(id)
		if err != nil {
			return fmt.Errorf("scheduler: forget card %d: %w", id, err)
		}
		c.Type = model.TypeNew
		c.Queue = model.QueueNew
		c.Ivl = 0
		c.Due = 0
		c.OriginalDue = 0
		c.OriginalDeck = 0
		c.Factor = model.StartingFactor
		if err := s.Store.UpdateCard(c); err != nil {
			return err
		}
	}
	return s.SortCards(ids, s.nextFreeNewDue(), 1, false)
}

func (s *Scheduler) nextFreeNewDue() int64 {
	all, err := s.Store.CardsInDecks(s.allDeckIDs())
	if err != nil {
		return 1
	}
	var max int64
	for _, c := range all {
		if c.Type == model.TypeNew && c.Due > max {
			max = c.Due
		}
	}
	return max + 1
}

func (s *Scheduler) allDeckIDs() []int64 {
	ids := make([]int64, 0, len(s.Decks.Decks))
	for id := range s.Decks.Decks {
		ids = append(ids, id)
	}
	return ids
}

// ReschedCards force-sets cards to Review with a random interval in
// [imin, imax] days.
func (s *Scheduler) ReschedCards(ids []int64, imin, imax int64) error {
	today := s.Today()
	for _, id := range ids {
		c, err := s.Store.GetCard(id)
		if err != nil {
			return fmt.Errorf("scheduler: resched card %d: %w", id, err)
		}
		span := imax - imin + 1
		if span < 1 {
			span = 1
		}
		r := imin + s.Rand.Int63n(span)
		ivl := r
		if ivl < 1 {
			ivl = 1
		}
		c.Type = model.TypeReview
		c.Queue = model.QueueReview
		c.Ivl = ivl
		c.Due = today + r
		c.OriginalDue = 0
		c.OriginalDeck = 0
		c.Factor = model.StartingFactor
		if err := s.Store.UpdateCard(c); err != nil {
			return err
		}
	}
	return nil
}

// ResetCards fully resets cards to their post-export state: reps, lapses
// and filtered-deck bookkeeping cleared, then forgotten if they weren't
// already New.
func (s *Scheduler) ResetCards(ids []int64) error {
	var nonNew []int64
	for _, id := range ids {
		c, err := s.Store.GetCard(id)
		if err != nil {
			return fmt.Errorf("scheduler: reset card %d: %w", id, err)
		}
		if c.Queue != model.QueueNew || c.Type != model.TypeNew {
			nonNew = append(nonNew, id)
		}
		c.Reps = 0
		c.Lapses = 0
		c.OriginalDeck = 0
		c.OriginalDue = 0
		c.Queue = model.QueueNew
		if err := s.Store.UpdateCard(c); err != nil {
			return err
		}
	}
	if len(nonNew) == 0 {
		return nil
	}
	return s.ForgetCards(nonNew)
}

// SortCards reassigns the due insertion-order key of New cards among ids,
// one slot per distinct note (siblings share a due), starting at start and
// incrementing by step.
func (s *Scheduler) SortCards(ids []int64, start, step int64, shuffle bool) error {
	seen := map[int64]bool{}
	var notes []int64
	cardsByNote := map[int64][]*model.Card{}
	for _, id := range ids {
		c, err := s.Store.GetCard(id)
		if err != nil {
			return fmt.Errorf("scheduler: sort card %d: %w", id, err)
		}
		if !seen[c.NoteID] {
			seen[c.NoteID] = true
			notes = append(notes, c.NoteID)
		}
		cardsByNote[c.NoteID] = append(cardsByNote[c.NoteID], c)
	}
	if len(notes) == 0 {
		return nil
	}
	if shuffle {
		shuffleInt64s(notes, s.Rand)
	} else {
		sort.Slice(notes, func(i, j int) bool { return notes[i] < notes[j] })
	}
	for i, nid := range notes {
		due := start + int64(i)*step
		for _, c := range cardsByNote[nid] {
			c.Due = due
			if err := s.Store.UpdateCard(c); err != nil {
				return err
			}
		}
	}
	return nil
}

// RandomizeCards shuffles the new-card due order of every card in deckID.
func (s *Scheduler) RandomizeCards(deckID int64) error {
	cards, err := s.Store.CardsInDecks([]int64{deckID})
	if err != nil {
		return err
	}
	ids := make([]int64, len(cards))
	for i, c := range cards {
		ids[i] = c.ID
	}
	return s.SortCards(ids, 1, 1, true)
}

func shuffleInt64s(xs []int64, r interface{ Int63n(int64) int64 }) {
	for i := len(xs) - 1; i > 0; i-- {
		j := r.Int63n(int64(i + 1))
		xs[i], xs[j] = xs[j], xs[i]
	}
}

package scheduler

import (
	"github.com/flashgrid/srscore/internal/decks"
	"github.com/flashgrid/srscore/internal/model"
)

// AnswerCard grades c, advances its scheduling state, updates the owning
// deck's daily counters, and persists both the card and a revlog entry.
func (s *Scheduler) AnswerCard(c *model.Card, ease int, timeTakenMs int64) error {
	note, err := s.Store.GetNote(c.NoteID)
	wasLeechBefore := err == nil && note.HasTag(leechTag)

	if s.Undo != nil {
		s.Undo.PushReview(c, wasLeechBefore)
	}

	if err := s.burySiblings(c); err != nil {
		return err
	}

	c.Reps++
	wasNew := c.Type == model.TypeNew
	wasNewQueue := c.Queue == model.QueueNew

	deckStatNew := false
	if wasNewQueue {
		c.Queue = model.QueueLearning
		if wasNew {
			c.Type = model.TypeLearning
		}
		c.Left = s.startingLeft(c)
		deckStatNew = true
	}

	dispatchQueue := c.Queue

	var entry *model.RevlogEntry
	switch {
	case dispatchQueue == model.QueueLearning || dispatchQueue == model.QueueDayLearning:
		entry = s.answerLearningCard(c, ease)
		if wasNewQueue {
			entry.Type = model.RevLearning
		}
	case dispatchQueue == model.QueueReview:
		entry = s.answerReviewCard(c, ease)
	default:
		entry = s.answerLearningCard(c, ease)
	}

	d, err := s.Decks.Get(c.DeckID)
	if err == nil {
		decks.TickCounters(d, s.Today())
		maxTaken := s.deckConfig(c.DeckID).MaxTaken * 1000
		clamped := timeTakenMs
		if maxTaken > 0 && clamped > maxTaken {
			clamped = maxTaken
		}
		d.TimeToday.Count += clamped
		switch {
		case deckStatNew:
			d.NewToday.Count++
		case dispatchQueue == model.QueueLearning || dispatchQueue == model.QueueDayLearning:
			d.LrnToday.Count++
		case dispatchQueue == model.QueueReview:
			d.RevToday.Count++
		}
	}

	c.Mod = s.nowUnix()
	c.USN = s.USN()
	entry.CardID = c.ID

	if err := s.Store.UpdateCard(c); err != nil {
		return err
	}
	id, err := s.Store.NextTimestampID("revlog")
	if err != nil {
		return err
	}
	entry.ID = id
	if err := s.Store.InsertRevlog(entry); err != nil {
		return err
	}

	s.reps++
	return nil
}

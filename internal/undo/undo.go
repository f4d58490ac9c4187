// Package undo implements a single-slot undo of the most recent
// answer_card call: a one-deep stack of (card snapshot, leech-before
// flag) pairs, popped and replayed against the store on undo.
package undo

import (
	"errors"
	"fmt"

	"github.com/flashgrid/srscore/internal/decks"
	"github.com/flashgrid/srscore/internal/model"
	"github.com/flashgrid/srscore/internal/store"
)

// leechTag mirrors the tag name scheduler.checkLeech uses. The two
// packages can't share a constant without an import cycle (scheduler
// depends on undo, not the other way around), so it's repeated here.
const leechTag = "leech"

// ErrNothingToUndo is returned when UndoReview is called with an empty slot.
var ErrNothingToUndo = errors.New("undo: nothing to undo")

type reviewSnapshot struct {
	card     *model.Card
	wasLeech bool
}

// Log holds the single review-undo slot for one collection. Checkpoint-mode
// undo for bulk operations is a different mechanism and isn't modeled
// here — this package covers only the per-review slot.
type Log struct {
	Store store.Store
	Decks *decks.Registry

	slot *reviewSnapshot
}

// New returns an empty undo log bound to st and reg.
func New(st store.Store, reg *decks.Registry) *Log {
	return &Log{Store: st, Decks: reg}
}

// PushReview records card's state immediately before an answer_card call,
// along with whether its note already carried the leech tag. Each call
// overwrites the previous slot — only the most recent review is undoable.
func (l *Log) PushReview(card *model.Card, wasLeechBefore bool) {
	snapshot := *card
	l.slot = &reviewSnapshot{card: &snapshot, wasLeech: wasLeechBefore}
}

// CanUndo reports whether a review is currently undoable.
func (l *Log) CanUndo() bool { return l.slot != nil }

// UndoReview reverses the last answer_card call: it strips a leech tag
// the answer newly added, restores the card's pre-answer row, deletes the
// revlog entry the answer wrote, restores any siblings the answer buried,
// and rolls back the deck's daily counters. It consumes the slot: a
// second call without an intervening PushReview returns ErrNothingToUndo.
func (l *Log) UndoReview() error {
	if l.slot == nil {
		return ErrNothingToUndo
	}
	saved := l.slot.card
	wasLeech := l.slot.wasLeech
	l.slot = nil

	if note, err := l.Store.GetNote(saved.NoteID); err == nil {
		if note.HasTag(leechTag) && !wasLeech {
			note.RemoveTag(leechTag)
			if err := l.Store.UpdateNote(note); err != nil {
				return fmt.Errorf("undo: strip leech tag: %w", err)
			}
		}
	}

	if _, err := l.Store.GetCard(saved.ID); err != nil {
		return fmt.Errorf("undo: load live card %d: %w", saved.ID, err)
	}

	// Restoring saved's row also restores its pre-answer rep count.
	if err := l.Store.UpdateCard(saved); err != nil {
		return fmt.Errorf("undo: restore card %d: %w", saved.ID, err)
	}

	if entry, err := l.Store.LatestRevlogForCard(saved.ID); err == nil {
		if err := l.Store.DeleteRevlog(entry.ID); err != nil {
			return fmt.Errorf("undo: delete revlog %d: %w", entry.ID, err)
		}
	}

	if err := l.Store.RestoreBuriedForNote(saved.NoteID); err != nil {
		return fmt.Errorf("undo: restore buried siblings: %w", err)
	}

	if d, err := l.Decks.Get(saved.DeckID); err == nil {
		typeKey := saved.Queue
		if typeKey == model.QueueDayLearning {
			typeKey = model.QueueLearning
		}
		switch typeKey {
		case model.QueueNew:
			d.NewToday.Count--
		case model.QueueLearning:
			d.LrnToday.Count--
		case model.QueueReview:
			d.RevToday.Count--
		}
	}

	return nil
}

// Package cards implements the card materializer (generate_cards): given
// a note, computes which template ordinals produce non-empty cards and
// reconciles that against the cards that already exist for the note.
package cards

import (
	"github.com/flashgrid/srscore/internal/decks"
	"github.com/flashgrid/srscore/internal/model"
	"github.com/flashgrid/srscore/internal/notetypes"
)

// Plan is the result of materializing one note: cards to create, and the
// ids of cards whose ordinal is no longer available. The caller decides
// whether to actually delete them; review history is never silently
// dropped.
type Plan struct {
	ToCreate []*model.Card
	ToDelete []int64
}

// Materializer runs generate_cards against a single note at a time; a
// bulk version over many notes is a batching optimization over this same
// per-note algorithm, not a different one.
type Materializer struct {
	Decks *decks.Registry
}

// Generate computes the materialization plan for note given its model,
// the cards that currently exist for it, and a nextPos generator used
// both as the "new card" due key and as the fallback representative due.
func (mz *Materializer) Generate(note *model.Note, m *model.Model, existing []*model.Card, defaultDeckID int64, nextPos func() int64) Plan {
	fieldVals := fieldMap(m.Fields, note.Fields)
	avail := notetypes.AvailOrds(m, fieldVals)
	availSet := map[int]bool{}
	for _, o := range avail {
		availSet[o] = true
	}

	haveByOrd := map[int]*model.Card{}
	for _, c := range existing {
		haveByOrd[c.Ord] = c
	}

	repDeck, repDeckAgree := representativeDeck(existing)
	repDue, haveRepDue := representativeDue(existing)

	var plan Plan
	for _, ord := range avail {
		if _, ok := haveByOrd[ord]; ok {
			continue
		}
		due := repDue
		if !haveRepDue {
			due = nextPos()
			haveRepDue = true
			repDue = due
		}
		did := defaultDeckID
		if ord < len(m.Templates) && m.Templates[ord].DeckOverride != 0 {
			did = m.Templates[ord].DeckOverride
		} else if repDeckAgree && repDeck != 0 {
			did = repDeck
		}
		if mz.isDyn(did) {
			did = decks.DefaultDeckID
		}
		plan.ToCreate = append(plan.ToCreate, &model.Card{
			NoteID: note.ID,
			DeckID: did,
			Ord:    ord,
			Type:   model.TypeNew,
			Queue:  model.QueueNew,
			Due:    due,
		})
	}

	for ord, c := range haveByOrd {
		if !availSet[ord] {
			plan.ToDelete = append(plan.ToDelete, c.ID)
		}
	}
	return plan
}

func (mz *Materializer) isDyn(deckID int64) bool {
	if mz.Decks == nil {
		return false
	}
	d, err := mz.Decks.Get(deckID)
	if err != nil {
		return false
	}
	return d.Dyn
}

func fieldMap(names, values []string) map[string]string {
	out := make(map[string]string, len(names))
	for i, n := range names {
		if i < len(values) {
			out[n] = values[i]
		} else {
			out[n] = ""
		}
	}
	return out
}

// representativeDeck returns the shared deck id of existing siblings, or
// (0, false) if they disagree.
func representativeDeck(existing []*model.Card) (int64, bool) {
	if len(existing) == 0 {
		return 0, false
	}
	// filtered-deck cards use their origin (odid) as the "current" deck,
	// matching genCards' preference for odid when a card is rehosted.
	effective := func(c *model.Card) int64 {
		if c.OriginalDeck != 0 {
			return c.OriginalDeck
		}
		return c.DeckID
	}
	first := effective(existing[0])
	for _, c := range existing[1:] {
		if effective(c) != first {
			return 0, false
		}
	}
	return first, true
}

// representativeDue returns the first-seen due among existing siblings
// (or their odue if filtered).
func representativeDue(existing []*model.Card) (int64, bool) {
	if len(existing) == 0 {
		return 0, false
	}
	c := existing[0]
	if c.OriginalDeck != 0 {
		return c.OriginalDue, true
	}
	return c.Due, true
}

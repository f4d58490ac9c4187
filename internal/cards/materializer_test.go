package cards

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flashgrid/srscore/internal/decks"
	"github.com/flashgrid/srscore/internal/model"
	"github.com/flashgrid/srscore/internal/notetypes"
)

func sequentialPos(start int64) func() int64 {
	n := start
	return func() int64 {
		n++
		return n
	}
}

func TestGenerateCreatesOneCardPerAvailableStandardTemplate(t *testing.T) {
	reg := decks.NewRegistry()
	nt := notetypes.NewRegistry()
	m := nt.Add(&model.Model{
		Name:   "Basic (and reversed)",
		Kind:   model.KindStandard,
		Fields: []string{"Front", "Back"},
		Templates: []model.CardTemplate{
			{Name: "Card 1", QFmt: "{{Front}}"},
			{Name: "Card 2", QFmt: "{{Back}}"},
		},
	})
	note := &model.Note{ID: 1, Fields: []string{"q", "a"}}

	mz := &Materializer{Decks: reg}
	plan := mz.Generate(note, m, nil, decks.DefaultDeckID, sequentialPos(100))

	require.Len(t, plan.ToCreate, 2)
	assert.Empty(t, plan.ToDelete)
	for _, c := range plan.ToCreate {
		assert.Equal(t, decks.DefaultDeckID, c.DeckID)
		assert.Equal(t, model.TypeNew, c.Type)
		assert.Equal(t, model.QueueNew, c.Queue)
	}
}

func TestGenerateSkipsTemplateWhoseRequiredFieldIsEmpty(t *testing.T) {
	reg := decks.NewRegistry()
	nt := notetypes.NewRegistry()
	m := nt.Add(&model.Model{
		Name:   "Basic (and reversed)",
		Kind:   model.KindStandard,
		Fields: []string{"Front", "Back"},
		Templates: []model.CardTemplate{
			{Name: "Card 1", QFmt: "{{Front}}"},
			{Name: "Card 2", QFmt: "{{Back}}"},
		},
	})
	note := &model.Note{ID: 1, Fields: []string{"q", ""}}

	mz := &Materializer{Decks: reg}
	plan := mz.Generate(note, m, nil, decks.DefaultDeckID, sequentialPos(100))

	require.Len(t, plan.ToCreate, 1)
	assert.Equal(t, 0, plan.ToCreate[0].Ord)
}

func TestGenerateMarksCardsForDeletionWhenNoLongerAvailable(t *testing.T) {
	reg := decks.NewRegistry()
	nt := notetypes.NewRegistry()
	m := nt.Add(&model.Model{
		Name:   "Basic (and reversed)",
		Kind:   model.KindStandard,
		Fields: []string{"Front", "Back"},
		Templates: []model.CardTemplate{
			{Name: "Card 1", QFmt: "{{Front}}"},
			{Name: "Card 2", QFmt: "{{Back}}"},
		},
	})
	existing := []*model.Card{
		{ID: 10, NoteID: 1, Ord: 0, DeckID: decks.DefaultDeckID},
		{ID: 11, NoteID: 1, Ord: 1, DeckID: decks.DefaultDeckID},
	}
	note := &model.Note{ID: 1, Fields: []string{"q", ""}}

	mz := &Materializer{Decks: reg}
	plan := mz.Generate(note, m, existing, decks.DefaultDeckID, sequentialPos(100))

	assert.Empty(t, plan.ToCreate)
	assert.Equal(t, []int64{11}, plan.ToDelete)
}

func TestGenerateClozeProducesOneCardPerOrdinal(t *testing.T) {
	reg := decks.NewRegistry()
	nt := notetypes.NewRegistry()
	m := nt.Add(&model.Model{
		Name:   "Cloze",
		Kind:   model.KindCloze,
		Fields: []string{"Text"},
		Templates: []model.CardTemplate{
			{Name: "Cloze", QFmt: "{{cloze:Text}}"},
		},
	})
	note := &model.Note{ID: 1, Fields: []string{"{{c1::Paris}} is the capital of {{c2::France}}."}}

	mz := &Materializer{Decks: reg}
	plan := mz.Generate(note, m, nil, decks.DefaultDeckID, sequentialPos(100))

	require.Len(t, plan.ToCreate, 2)
	ords := []int{plan.ToCreate[0].Ord, plan.ToCreate[1].Ord}
	assert.ElementsMatch(t, []int{0, 1}, ords)
}

func TestGenerateNewSiblingInheritsRepresentativeDeckAndDue(t *testing.T) {
	reg := decks.NewRegistry()
	spanish := reg.EnsureParents("Spanish")
	nt := notetypes.NewRegistry()
	m := nt.Add(&model.Model{
		Name:   "Basic (and reversed)",
		Kind:   model.KindStandard,
		Fields: []string{"Front", "Back"},
		Templates: []model.CardTemplate{
			{Name: "Card 1", QFmt: "{{Front}}"},
			{Name: "Card 2", QFmt: "{{Back}}"},
		},
	})
	existing := []*model.Card{
		{ID: 10, NoteID: 1, Ord: 0, DeckID: spanish.ID, Due: 42},
	}
	note := &model.Note{ID: 1, Fields: []string{"q", "a"}}

	mz := &Materializer{Decks: reg}
	plan := mz.Generate(note, m, existing, decks.DefaultDeckID, sequentialPos(100))

	require.Len(t, plan.ToCreate, 1)
	assert.Equal(t, spanish.ID, plan.ToCreate[0].DeckID, "new sibling should land in the deck its existing siblings share")
	assert.Equal(t, int64(42), plan.ToCreate[0].Due, "new sibling should share the representative due of its siblings")
}

func TestGenerateDynDeckFallsBackToDefaultDeck(t *testing.T) {
	reg := decks.NewRegistry()
	dyn := reg.EnsureParents("Filtered")
	dynDeck, err := reg.Get(dyn.ID)
	require.NoError(t, err)
	dynDeck.Dyn = true

	nt := notetypes.NewRegistry()
	m := nt.Add(&model.Model{
		Name:   "Basic",
		Kind:   model.KindStandard,
		Fields: []string{"Front"},
		Templates: []model.CardTemplate{
			{Name: "Card 1", QFmt: "{{Front}}", DeckOverride: dyn.ID},
		},
	})
	note := &model.Note{ID: 1, Fields: []string{"q"}}

	mz := &Materializer{Decks: reg}
	plan := mz.Generate(note, m, nil, decks.DefaultDeckID, sequentialPos(100))

	require.Len(t, plan.ToCreate, 1)
	assert.Equal(t, decks.DefaultDeckID, plan.ToCreate[0].DeckID, "a deck override pointing at a filtered deck must fall back to the default deck")
}

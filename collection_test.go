package srscore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flashgrid/srscore/internal/decks"
	"github.com/flashgrid/srscore/internal/model"
)

func openTestCollection(t *testing.T) *Collection {
	t.Helper()
	dir := t.TempDir()
	col, err := Open(filepath.Join(dir, "collection.db"), filepath.Join(dir, "backups"))
	require.NoError(t, err)
	t.Cleanup(func() { col.Close(false) })
	return col
}

func basicModel(col *Collection) *model.Model {
	return col.NoteTypes.Add(&model.Model{
		Name:      "Basic",
		Kind:      model.KindStandard,
		Fields:    []string{"Front", "Back"},
		SortField: 0,
		Templates: []model.CardTemplate{
			{Name: "Card 1", QFmt: "{{Front}}", AFmt: "{{Back}}"},
		},
	})
}

func TestOpenCreatesDefaultDeck(t *testing.T) {
	col := openTestCollection(t)
	d, err := col.Decks.Get(decks.DefaultDeckID)
	require.NoError(t, err)
	assert.Equal(t, "Default", d.Name)
}

func TestAddNoteGeneratesCards(t *testing.T) {
	col := openTestCollection(t)
	m := basicModel(col)

	note, cards, err := col.AddNote(m.ID, decks.DefaultDeckID, map[string]string{"Front": "q", "Back": "a"}, []string{"tag1"})
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "q", note.Fields[0])
	assert.Equal(t, note.ID, cards[0].NoteID)

	stored, err := col.Store.GetCard(cards[0].ID)
	require.NoError(t, err)
	assert.Equal(t, decks.DefaultDeckID, stored.DeckID)
}

func TestAddNoteRejectsUnknownModel(t *testing.T) {
	col := openTestCollection(t)
	_, _, err := col.AddNote(999, decks.DefaultDeckID, map[string]string{"Front": "q"}, nil)
	assert.Error(t, err)
}

func TestDeleteNoteCascadesToCards(t *testing.T) {
	col := openTestCollection(t)
	m := basicModel(col)
	note, cards, err := col.AddNote(m.ID, decks.DefaultDeckID, map[string]string{"Front": "q", "Back": "a"}, nil)
	require.NoError(t, err)
	require.Len(t, cards, 1)

	require.NoError(t, col.DeleteNote(note.ID))

	_, err = col.Store.GetCard(cards[0].ID)
	assert.Error(t, err)
}

func TestAnswerCardPersistsResult(t *testing.T) {
	col := openTestCollection(t)
	m := basicModel(col)
	_, cards, err := col.AddNote(m.ID, decks.DefaultDeckID, map[string]string{"Front": "q", "Back": "a"}, nil)
	require.NoError(t, err)

	card := cards[0]
	require.NoError(t, col.AnswerCard(card, model.EaseGood, 2500))

	got, err := col.Store.GetCard(card.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Reps)
}

func TestSaveAndReopenPreservesDecks(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "collection.db")
	backupDir := filepath.Join(dir, "backups")

	col, err := Open(dbPath, backupDir)
	require.NoError(t, err)
	deck := col.Decks.EnsureParents("Spanish")
	col.modified = true
	require.NoError(t, col.Close(true))

	reopened, err := Open(dbPath, backupDir)
	require.NoError(t, err)
	defer reopened.Close(false)

	got, err := reopened.Decks.Get(deck.ID)
	require.NoError(t, err)
	assert.Equal(t, "Spanish", got.Name)
}

package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flashgrid/srscore/internal/model"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "collection.db")
	st, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestCollectionRowRoundTrip(t *testing.T) {
	st := openTestStore(t)

	row := &CollectionRow{Crt: 1700000000, Mod: 1700000001000, Conf: []byte(`{"curDeck":1}`),
		Models: []byte("{}"), Decks: []byte("{}"), DConf: []byte("{}"), Tags: []byte("{}")}
	require.NoError(t, st.SaveCollectionRow(row))

	got, err := st.GetCollectionRow()
	require.NoError(t, err)
	assert.Equal(t, row.Crt, got.Crt)
	assert.Equal(t, row.Mod, got.Mod)
	assert.Equal(t, row.Conf, got.Conf)

	row.Mod = 1700000002000
	require.NoError(t, st.SaveCollectionRow(row))
	got, err = st.GetCollectionRow()
	require.NoError(t, err)
	assert.Equal(t, row.Mod, got.Mod)
}

func TestNoteCardRoundTrip(t *testing.T) {
	st := openTestStore(t)

	note := &model.Note{ID: 1, Guid: "abc", ModelID: 1, Tags: []string{"foo", "bar"}, Fields: []string{"Front", "Back"}, SortField: "Front"}
	require.NoError(t, st.InsertNote(note))

	got, err := st.GetNote(1)
	require.NoError(t, err)
	assert.Equal(t, note.Fields, got.Fields)
	assert.ElementsMatch(t, note.Tags, got.Tags)

	card := &model.Card{ID: 1, NoteID: 1, DeckID: 1, Type: model.TypeNew, Queue: model.QueueNew, Factor: model.StartingFactor}
	require.NoError(t, st.InsertCard(card))

	cards, err := st.CardsForNote(1)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, int64(1), cards[0].ID)

	require.NoError(t, st.DeleteNote(1))
	_, err = st.GetNote(1)
	assert.Error(t, err)
}

func TestRestoreBuriedForNoteRestoresEachCardsOwnType(t *testing.T) {
	st := openTestStore(t)
	note := &model.Note{ID: 1, Guid: "abc", ModelID: 1, Fields: []string{"a"}}
	require.NoError(t, st.InsertNote(note))

	newCard := &model.Card{ID: 1, NoteID: 1, DeckID: 1, Type: model.TypeNew, Queue: model.QueueBuried}
	revCard := &model.Card{ID: 2, NoteID: 1, DeckID: 1, Type: model.TypeReview, Queue: model.QueueBuried}
	require.NoError(t, st.InsertCard(newCard))
	require.NoError(t, st.InsertCard(revCard))

	require.NoError(t, st.RestoreBuriedForNote(1))

	got1, err := st.GetCard(1)
	require.NoError(t, err)
	assert.Equal(t, model.QueueNew, got1.Queue)

	got2, err := st.GetCard(2)
	require.NoError(t, err)
	assert.Equal(t, model.QueueReview, got2.Queue)
}

func TestNextTimestampIDMonotonic(t *testing.T) {
	st := openTestStore(t)
	note := &model.Note{ID: 500000000000000, Guid: "x", ModelID: 1, Fields: []string{"a"}}
	require.NoError(t, st.InsertNote(note))

	id, err := st.NextTimestampID("notes")
	require.NoError(t, err)
	assert.Greater(t, id, note.ID)
}

func TestRevlogInsertAndDelete(t *testing.T) {
	st := openTestStore(t)
	note := &model.Note{ID: 1, Guid: "abc", ModelID: 1, Fields: []string{"a"}}
	require.NoError(t, st.InsertNote(note))
	card := &model.Card{ID: 1, NoteID: 1, DeckID: 1}
	require.NoError(t, st.InsertCard(card))

	entry := &model.RevlogEntry{ID: 1000, CardID: 1, Ease: model.EaseGood, Ivl: 1, Factor: model.StartingFactor}
	require.NoError(t, st.InsertRevlog(entry))

	got, err := st.LatestRevlogForCard(1)
	require.NoError(t, err)
	assert.Equal(t, entry.ID, got.ID)

	require.NoError(t, st.DeleteRevlog(entry.ID))
	_, err = st.LatestRevlogForCard(1)
	assert.Error(t, err)
}

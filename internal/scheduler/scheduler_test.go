package scheduler

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flashgrid/srscore/internal/decks"
	"github.com/flashgrid/srscore/internal/model"
	"github.com/flashgrid/srscore/internal/store"
	"github.com/flashgrid/srscore/internal/undo"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "collection.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	reg := decks.NewRegistry()
	clock := func() time.Time { return time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC) }
	crt := clock().Add(-8 * time.Hour).Unix() // 4am same day

	s := New(st, reg, undo.New(st, reg), crt, model.CollectionConf{
		ActiveDecks: []int64{decks.DefaultDeckID},
		CurDeck:     decks.DefaultDeckID,
		SchedVer:    2,
	}, clock)
	return s
}

func insertCard(t *testing.T, s *Scheduler, c *model.Card) {
	t.Helper()
	note := &model.Note{ID: c.NoteID, Guid: "g", ModelID: 1, Fields: []string{"front"}}
	_ = s.Store.InsertNote(note) // duplicate note ids across cards are fine for these tests' isolated scope
	require.NoError(t, s.Store.InsertCard(c))
}

func TestNextIvlReviewGoodIsPositiveDays(t *testing.T) {
	s := newTestScheduler(t)
	c := &model.Card{ID: 1, NoteID: 1, DeckID: decks.DefaultDeckID, Type: model.TypeReview, Queue: model.QueueReview, Ivl: 10, Factor: model.StartingFactor}

	ivl := s.NextIvl(c, model.EaseGood)
	require.Greater(t, ivl, int64(0))
}

func TestNextIvlReviewAgainIsNegativeLapse(t *testing.T) {
	s := newTestScheduler(t)
	c := &model.Card{ID: 1, NoteID: 1, DeckID: decks.DefaultDeckID, Type: model.TypeReview, Queue: model.QueueReview, Ivl: 10, Factor: model.StartingFactor}

	ivl := s.NextIvl(c, model.EaseAgain)
	require.Less(t, ivl, int64(0))
}

func TestNextIvlDoesNotMutateCard(t *testing.T) {
	s := newTestScheduler(t)
	c := &model.Card{ID: 1, NoteID: 1, DeckID: decks.DefaultDeckID, Type: model.TypeReview, Queue: model.QueueReview, Ivl: 10, Factor: model.StartingFactor}
	before := *c

	s.NextIvl(c, model.EaseGood)
	s.NextIvl(c, model.EaseAgain)
	s.NextIvl(c, model.EaseEasy)

	require.Equal(t, before, *c)
}

func TestForgetCardsResetsToNew(t *testing.T) {
	s := newTestScheduler(t)
	c := &model.Card{ID: 1, NoteID: 1, DeckID: decks.DefaultDeckID, Type: model.TypeReview, Queue: model.QueueReview, Ivl: 30, Factor: 2100}
	insertCard(t, s, c)

	require.NoError(t, s.ForgetCards([]int64{1}))

	got, err := s.Store.GetCard(1)
	require.NoError(t, err)
	require.Equal(t, model.TypeNew, got.Type)
	require.Equal(t, model.QueueNew, got.Queue)
	require.Equal(t, int64(0), got.Ivl)
	require.Equal(t, int64(model.StartingFactor), got.Factor)
}

func TestReschedCardsSetsReviewWithinRange(t *testing.T) {
	s := newTestScheduler(t)
	c := &model.Card{ID: 1, NoteID: 1, DeckID: decks.DefaultDeckID, Type: model.TypeNew, Queue: model.QueueNew}
	insertCard(t, s, c)

	require.NoError(t, s.ReschedCards([]int64{1}, 5, 10))

	got, err := s.Store.GetCard(1)
	require.NoError(t, err)
	require.Equal(t, model.TypeReview, got.Type)
	require.GreaterOrEqual(t, got.Ivl, int64(5))
	require.LessOrEqual(t, got.Ivl, int64(10))
}

func TestResetCardsForgetsNonNewCards(t *testing.T) {
	s := newTestScheduler(t)
	c := &model.Card{ID: 1, NoteID: 1, DeckID: decks.DefaultDeckID, Type: model.TypeReview, Queue: model.QueueReview, Ivl: 30, Reps: 5, Lapses: 2}
	insertCard(t, s, c)

	require.NoError(t, s.ResetCards([]int64{1}))

	got, err := s.Store.GetCard(1)
	require.NoError(t, err)
	require.Equal(t, model.TypeNew, got.Type)
	require.Equal(t, int64(0), got.Reps)
	require.Equal(t, int64(0), got.Lapses)
}

func TestAnswerCardGraduatesNewCardIntoLearning(t *testing.T) {
	s := newTestScheduler(t)
	c := &model.Card{ID: 1, NoteID: 1, DeckID: decks.DefaultDeckID, Type: model.TypeNew, Queue: model.QueueNew}
	insertCard(t, s, c)

	require.NoError(t, s.AnswerCard(c, 2, 3000)) // Good in the 3-button learning layout

	assert.Equal(t, model.TypeLearning, c.Type)
	assert.Equal(t, int64(1), c.Reps)

	revlog, err := s.Store.LatestRevlogForCard(1)
	require.NoError(t, err)
	assert.Equal(t, 2, revlog.Ease)
}

func TestAnswerCardOnReviewCardLapseIncrementsLapses(t *testing.T) {
	s := newTestScheduler(t)
	c := &model.Card{ID: 1, NoteID: 1, DeckID: decks.DefaultDeckID, Type: model.TypeReview, Queue: model.QueueReview, Ivl: 20, Factor: model.StartingFactor, Reps: 5}
	insertCard(t, s, c)

	require.NoError(t, s.AnswerCard(c, model.EaseAgain, 3000))

	assert.Equal(t, int64(1), c.Lapses)
	assert.Equal(t, model.QueueLearning, c.Queue)
}

func TestAnswerCardClampsTimeTakenToDeckMax(t *testing.T) {
	s := newTestScheduler(t)
	c := &model.Card{ID: 1, NoteID: 1, DeckID: decks.DefaultDeckID, Type: model.TypeNew, Queue: model.QueueNew}
	insertCard(t, s, c)

	require.NoError(t, s.AnswerCard(c, model.EaseGood, 10*60*1000)) // 10 minutes, default MaxTaken is 60s

	d, err := s.Decks.Get(decks.DefaultDeckID)
	require.NoError(t, err)
	assert.Equal(t, int64(60000), d.TimeToday.Count)
}

func TestAnswerCardTagsLeechAfterThresholdLapses(t *testing.T) {
	s := newTestScheduler(t)
	c := &model.Card{ID: 1, NoteID: 1, DeckID: decks.DefaultDeckID, Type: model.TypeReview, Queue: model.QueueReview, Ivl: 20, Factor: model.StartingFactor, Lapses: 7}
	insertCard(t, s, c)

	require.NoError(t, s.AnswerCard(c, model.EaseAgain, 1000))

	note, err := s.Store.GetNote(c.NoteID)
	require.NoError(t, err)
	assert.True(t, note.HasTag("leech"), "8th lapse should cross the default LeechFails=8 threshold")
	assert.True(t, c.Suspended(), "default leech action is suspend")
}

func TestAnswerCardBuriesNewSiblingWhenConfigured(t *testing.T) {
	s := newTestScheduler(t)
	s.Conf.NewBury = true
	answered := &model.Card{ID: 1, NoteID: 1, DeckID: decks.DefaultDeckID, Type: model.TypeNew, Queue: model.QueueNew}
	sibling := &model.Card{ID: 2, NoteID: 1, DeckID: decks.DefaultDeckID, Type: model.TypeNew, Queue: model.QueueNew, Ord: 1}
	insertCard(t, s, answered)
	require.NoError(t, s.Store.InsertCard(sibling))

	require.NoError(t, s.AnswerCard(answered, model.EaseGood, 1000))

	got, err := s.Store.GetCard(2)
	require.NoError(t, err)
	assert.Equal(t, model.QueueBuried, got.Queue)
}

func TestSortCardsKeepsSiblingsTogether(t *testing.T) {
	s := newTestScheduler(t)
	c1 := &model.Card{ID: 1, NoteID: 1, DeckID: decks.DefaultDeckID, Type: model.TypeNew, Queue: model.QueueNew}
	c2 := &model.Card{ID: 2, NoteID: 1, DeckID: decks.DefaultDeckID, Type: model.TypeNew, Queue: model.QueueNew, Ord: 1}
	insertCard(t, s, c1)
	require.NoError(t, s.Store.InsertCard(c2))

	require.NoError(t, s.SortCards([]int64{1, 2}, 100, 1, false))

	got1, err := s.Store.GetCard(1)
	require.NoError(t, err)
	got2, err := s.Store.GetCard(2)
	require.NoError(t, err)
	require.Equal(t, got1.Due, got2.Due)
	require.Equal(t, int64(100), got1.Due)
}

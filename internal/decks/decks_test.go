package decks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flashgrid/srscore/internal/model"
)

func TestNewRegistrySeedsDefaultDeck(t *testing.T) {
	r := NewRegistry()
	d, err := r.Get(DefaultDeckID)
	require.NoError(t, err)
	assert.Equal(t, "Default", d.Name)
	assert.Equal(t, int64(1), d.ConfID)
}

func TestEnsureParentsBuildsHierarchy(t *testing.T) {
	r := NewRegistry()
	leaf := r.EnsureParents("Language::Spanish::Verbs")

	assert.Equal(t, "Language::Spanish::Verbs", leaf.Name)
	require.NotNil(t, r.ByName("Language"))
	require.NotNil(t, r.ByName("Language::Spanish"))

	again := r.EnsureParents("Language::Spanish::Verbs")
	assert.Equal(t, leaf.ID, again.ID, "re-ensuring an existing path must not create a duplicate")
}

func TestParentsAndChildren(t *testing.T) {
	r := NewRegistry()
	r.EnsureParents("Language::Spanish::Verbs")
	r.EnsureParents("Language::Spanish::Nouns")

	spanish := r.ByName("Language::Spanish")
	children := r.Children(spanish)
	assert.Len(t, children, 2)

	verbs := r.ByName("Language::Spanish::Verbs")
	parents := r.Parents(verbs)
	require.Len(t, parents, 2)
	assert.Equal(t, "Language::Spanish", parents[0].Name)
	assert.Equal(t, "Language", parents[1].Name)
}

func TestRenamePropagatesToDescendants(t *testing.T) {
	r := NewRegistry()
	r.EnsureParents("Language::Spanish::Verbs")
	spanish := r.ByName("Language::Spanish")

	require.NoError(t, r.Rename(spanish, "Language::Espanol"))

	assert.Nil(t, r.ByName("Language::Spanish::Verbs"))
	assert.NotNil(t, r.ByName("Language::Espanol::Verbs"))
}

func TestRemCannotRemoveDefaultDeck(t *testing.T) {
	r := NewRegistry()
	_, err := r.Rem(DefaultDeckID, false)
	assert.ErrorIs(t, err, ErrPrecondition)
}

func TestRemDeletesChildrenWhenRequested(t *testing.T) {
	r := NewRegistry()
	parent := r.EnsureParents("Language")
	r.EnsureParents("Language::Spanish")

	removed, err := r.Rem(parent.ID, true)
	require.NoError(t, err)
	assert.Len(t, removed, 1)
	assert.Nil(t, r.ByName("Language::Spanish"))
	_, err = r.Get(parent.ID)
	assert.Error(t, err)
}

func TestTickCountersResetsOnNewDay(t *testing.T) {
	d := &model.Deck{NewToday: model.DayCounter{Day: 5, Count: 10}}
	TickCounters(d, 5)
	assert.Equal(t, int64(10), d.NewToday.Count)

	TickCounters(d, 6)
	assert.Equal(t, int64(0), d.NewToday.Count)
	assert.Equal(t, int64(6), d.NewToday.Day)
}

func TestTodayComputesDayIndex(t *testing.T) {
	crt := int64(1000 * 86400)
	assert.Equal(t, int64(0), Today(crt, crt))
	assert.Equal(t, int64(1), Today(crt+86400, crt))
	assert.Equal(t, int64(1), Today(crt+86400+3600, crt))
}

func TestExtendLimits(t *testing.T) {
	r := NewRegistry()
	d, _ := r.Get(DefaultDeckID)
	r.ExtendLimits(d, 5, 10)
	assert.Equal(t, int64(5), d.ExtendNew)
	assert.Equal(t, int64(10), d.ExtendRev)
}

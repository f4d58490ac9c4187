// Package decks implements the deck registry: an in-memory tree of decks
// and deck-configuration groups, "::"-path hierarchy, daily counters that
// lazily reset on day rollover, and deck lifecycle operations
// (ensureParents, rename, rem).
package decks

import (
	"fmt"
	"strings"

	"github.com/flashgrid/srscore/internal/model"
)

// DefaultDeckID is Anki's undeletable deck 1 ("Default").
const DefaultDeckID = 1

// PathSep separates levels of a deck's hierarchical name.
const PathSep = "::"

// Registry holds every deck and deck-config group for one collection,
// keyed by id, plus the UI's active/selected deck pointers.
type Registry struct {
	Decks   map[int64]*model.Deck
	Configs map[int64]*model.DeckConfig

	selected int64
	nextID   int64
	nextConf int64
}

// NewRegistry builds an empty registry seeded with deck 1 and its default
// config group.
func NewRegistry() *Registry {
	r := &Registry{
		Decks:   map[int64]*model.Deck{},
		Configs: map[int64]*model.DeckConfig{},
		nextID:  2,
		nextConf: 2,
	}
	defConf := DefaultConfig(1, "Default")
	r.Configs[1] = defConf
	r.Decks[DefaultDeckID] = &model.Deck{ID: DefaultDeckID, Name: "Default", ConfID: 1}
	r.selected = DefaultDeckID
	return r
}

// DefaultConfig returns the legacy scheduler's default configuration
// group values.
func DefaultConfig(id int64, name string) *model.DeckConfig {
	return &model.DeckConfig{
		ID:   id,
		Name: name,
		New: model.NewConf{
			Delays:        []float64{1, 10},
			Ints:          []int64{1, 4, 7},
			InitialFactor: model.StartingFactor,
			Order:         model.NewCardOrderDue,
			PerDay:        20,
			Bury:          false,
			Separate:      true,
		},
		Lapse: model.LapseConf{
			Delays:      []float64{10},
			Mult:        0,
			MinInt:      1,
			LeechFails:  8,
			LeechAction: model.LeechSuspend,
		},
		Rev: model.RevConf{
			PerDay:     200,
			Ease4:      1.3,
			IvlFct:     1.0,
			MaxIvl:     36500,
			Bury:       false,
			HardFactor: 1.2,
		},
		MaxTaken: 60,
		Timer:    0,
		Autoplay: true,
		Replayq:  true,
	}
}

// Get returns the deck by id.
func (r *Registry) Get(id int64) (*model.Deck, error) {
	d, ok := r.Decks[id]
	if !ok {
		return nil, fmt.Errorf("decks: %w: id=%d", ErrDeckNotFound, id)
	}
	return d, nil
}

// ByName returns the deck with the given exact name, if any.
func (r *Registry) ByName(name string) *model.Deck {
	for _, d := range r.Decks {
		if d.Name == name {
			return d
		}
	}
	return nil
}

// Config returns the config group for a deck. A deck whose ConfID names
// no registered group (such as a filtered deck, with ConfID 0) gets the
// built-in default values; a filtered deck's DynamicDeckConf is not
// consulted.
func (r *Registry) Config(d *model.Deck) *model.DeckConfig {
	if c, ok := r.Configs[d.ConfID]; ok {
		return c
	}
	return DefaultConfig(0, "")
}

// EnsureParents creates (if missing) every ancestor implied by name's
// "::"-separated path and returns the leaf deck, creating it too if
// necessary.
func (r *Registry) EnsureParents(name string) *model.Deck {
	if d := r.ByName(name); d != nil {
		return d
	}
	parts := strings.Split(name, PathSep)
	built := ""
	var leaf *model.Deck
	for i, p := range parts {
		if i == 0 {
			built = p
		} else {
			built = built + PathSep + p
		}
		if d := r.ByName(built); d != nil {
			leaf = d
			continue
		}
		id := r.nextID
		r.nextID++
		nd := &model.Deck{ID: id, Name: built, ConfID: 1}
		r.Decks[id] = nd
		leaf = nd
	}
	return leaf
}

// Rename atomically rewrites d's name and every descendant's name prefix.
func (r *Registry) Rename(d *model.Deck, newName string) error {
	oldPrefix := d.Name + PathSep
	for _, other := range r.Decks {
		if other.ID == d.ID {
			continue
		}
		if strings.HasPrefix(other.Name, oldPrefix) {
			other.Name = newName + PathSep + strings.TrimPrefix(other.Name, oldPrefix)
		}
	}
	d.Name = newName
	return nil
}

// Children returns every deck whose name is a descendant of d's.
func (r *Registry) Children(d *model.Deck) []*model.Deck {
	prefix := d.Name + PathSep
	var out []*model.Deck
	for _, other := range r.Decks {
		if other.ID != d.ID && strings.HasPrefix(other.Name, prefix) {
			out = append(out, other)
		}
	}
	return out
}

// Parents returns d's ancestor chain, nearest-parent first.
func (r *Registry) Parents(d *model.Deck) []*model.Deck {
	parts := strings.Split(d.Name, PathSep)
	var out []*model.Deck
	for i := len(parts) - 1; i > 0; i-- {
		name := strings.Join(parts[:i], PathSep)
		if p := r.ByName(name); p != nil {
			out = append(out, p)
		}
	}
	return out
}

// Selected returns the active/selected deck plus every descendant.
func (r *Registry) Selected() []*model.Deck {
	d, ok := r.Decks[r.selected]
	if !ok {
		return nil
	}
	out := []*model.Deck{d}
	out = append(out, r.Children(d)...)
	return out
}

// Select sets the UI-focus deck.
func (r *Registry) Select(id int64) { r.selected = id }

// Rem deletes a deck. Deck 1 can never be removed; its name is reset
// instead if it had somehow become nested.
// Returns the ids of the child decks removed along with it when
// childrenToo is set (the cards/note deletion itself is the
// materializer/façade's job).
func (r *Registry) Rem(id int64, childrenToo bool) ([]int64, error) {
	if id == DefaultDeckID {
		if d := r.Decks[DefaultDeckID]; strings.Contains(d.Name, PathSep) {
			d.Name = "Default"
		}
		return nil, fmt.Errorf("decks: %w: cannot remove deck 1", ErrPrecondition)
	}
	d, ok := r.Decks[id]
	if !ok {
		return nil, fmt.Errorf("decks: %w: id=%d", ErrDeckNotFound, id)
	}
	var removedChildren []int64
	if childrenToo {
		for _, c := range r.Children(d) {
			removedChildren = append(removedChildren, c.ID)
			delete(r.Decks, c.ID)
		}
	}
	delete(r.Decks, id)
	return removedChildren, nil
}

// Today is floor((now - crt) / 86400): the collection's day index.
func Today(nowUnix, crt int64) int64 {
	return (nowUnix - crt) / 86400
}

// resetIfStale zeroes a day counter if its stamp doesn't match today.
func resetIfStale(c *model.DayCounter, today int64) {
	if c.Day != today {
		c.Day = today
		c.Count = 0
	}
}

// TickCounters resets every stale daily counter on d for the given
// today value. Called lazily before any limit computation.
func TickCounters(d *model.Deck, today int64) {
	resetIfStale(&d.NewToday, today)
	resetIfStale(&d.RevToday, today)
	resetIfStale(&d.LrnToday, today)
	resetIfStale(&d.TimeToday, today)
}

// ExtendLimits temporarily raises today's new/review counters downward
// (i.e. grants extra headroom) for a deck, without touching persisted
// per-day config — "study N more today."
func (r *Registry) ExtendLimits(d *model.Deck, newDelta, revDelta int64) {
	d.ExtendNew += newDelta
	d.ExtendRev += revDelta
}

// DeckCounts is one row of the due-count report returned by DueTree.
type DeckCounts struct {
	DeckID int64
	New    int64
	Learn  int64
	Review int64
}

// DueTree reports roll-up new/learning/review counts for every deck in
// the registry, summed through descendants: a read-only query over the
// same per-deck counts the queue-assembly walk already computes.
func (r *Registry) DueTree(counts map[int64]DeckCounts) []DeckCounts {
	out := make([]DeckCounts, 0, len(r.Decks))
	for id, d := range r.Decks {
		own := counts[id]
		total := own
		for _, c := range r.Children(d) {
			cc := counts[c.ID]
			total.New += cc.New
			total.Learn += cc.Learn
			total.Review += cc.Review
		}
		out = append(out, DeckCounts{DeckID: id, New: total.New, Learn: total.Learn, Review: total.Review})
	}
	return out
}

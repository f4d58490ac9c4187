// Package scheduler implements queue assembly, answer processing, sibling
// burying, filtered decks, and leech detection for one open collection.
package scheduler

import (
	"math/rand"
	"time"

	"github.com/flashgrid/srscore/internal/decks"
	"github.com/flashgrid/srscore/internal/model"
	"github.com/flashgrid/srscore/internal/store"
	"github.com/flashgrid/srscore/internal/undo"
)

// reportLimit is the card-count cap used for filtered decks, which bypass
// the ordinary per-day walking-count limits.
const reportLimit = 1000

// Clock lets tests and the façade control "now".
type Clock func() time.Time

// Scheduler owns the in-memory study queues for one collection and all
// answer-processing logic. One Scheduler serves exactly one study
// session at a time.
type Scheduler struct {
	Store store.Store
	Decks *decks.Registry
	Undo  *undo.Log

	Now   Clock
	Rand  *rand.Rand
	USN   func() int64

	Crt int64 // collection creation epoch, 4am-aligned

	Conf model.CollectionConf

	newQueue      []*model.Card
	learnQueue    []*model.Card
	dayLearnQueue []*model.Card
	revQueue      []*model.Card

	newCountSnapshot int64
	revCountSnapshot int64
	reps             int64
}

// New builds a scheduler. clock defaults to time.Now if nil.
func New(st store.Store, reg *decks.Registry, u *undo.Log, crt int64, conf model.CollectionConf, clock Clock) *Scheduler {
	if clock == nil {
		clock = time.Now
	}
	return &Scheduler{
		Store: st,
		Decks: reg,
		Undo:  u,
		Now:   clock,
		Rand:  rand.New(rand.NewSource(1)),
		USN:   func() int64 { return -1 },
		Crt:   crt,
		Conf:  conf,
	}
}

func (s *Scheduler) nowUnix() int64 { return s.Now().Unix() }

// Today is floor((now - crt) / 86400): the collection's day index.
func (s *Scheduler) Today() int64 { return decks.Today(s.nowUnix(), s.Crt) }

// DayCutoff is crt + (today+1)*86400 — the timestamp "today" rolls over.
func (s *Scheduler) DayCutoff() int64 { return s.Crt + (s.Today()+1)*86400 }

// confDeckID resolves which deck's configuration governs card: the
// filtered deck's origin deck if the card is currently rehosted, else its
// own deck.
func (s *Scheduler) confDeckID(c *model.Card) int64 {
	if c.Filtered() {
		return c.OriginalDeck
	}
	return c.DeckID
}

func (s *Scheduler) deckConfig(deckID int64) *model.DeckConfig {
	d, err := s.Decks.Get(deckID)
	if err != nil {
		return decks.DefaultConfig(0, "")
	}
	return s.Decks.Config(d)
}

func (s *Scheduler) newConf(c *model.Card) model.NewConf     { return s.deckConfig(s.confDeckID(c)).New }
func (s *Scheduler) lapseConf(c *model.Card) model.LapseConf { return s.deckConfig(s.confDeckID(c)).Lapse }
func (s *Scheduler) revConf(c *model.Card) model.RevConf     { return s.deckConfig(s.confDeckID(c)).Rev }

// resched reports whether scheduling changes should be applied to c, i.e.
// whether its filtered deck (if any) has resched=true.
func (s *Scheduler) resched(c *model.Card) bool {
	if !c.Filtered() {
		return true
	}
	d, err := s.Decks.Get(c.DeckID)
	if err != nil || d.Dynamic == nil {
		return true
	}
	return d.Dynamic.Resched
}

// lrnDelays returns the learning-step delay sequence (minutes) that
// governs c: lapse delays for a relapsed Review card, new-card delays
// otherwise.
func (s *Scheduler) lrnDelays(c *model.Card) []float64 {
	if c.Type == model.TypeReview {
		return s.lapseConf(c).Delays
	}
	return s.newConf(c).Delays
}

// leftToday counts how many of the trailing `left` delay steps can still
// be completed before today's cutoff.
func (s *Scheduler) leftToday(delays []float64, left int) int64 {
	if left <= 0 || left > len(delays) {
		left = len(delays)
	}
	remaining := delays[len(delays)-left:]
	now := s.nowUnix()
	ok := 0
	for i, d := range remaining {
		now += int64(d * 60)
		if now > s.DayCutoff() {
			break
		}
		ok = i
	}
	if len(remaining) == 0 {
		return 0
	}
	return int64(ok + 1)
}

// startingLeft computes the initial Left value for a card entering (or
// re-entering) the learning sequence: total remaining steps plus how many
// of them fit before today's cutoff, encoded as steps + today*1000.
func (s *Scheduler) startingLeft(c *model.Card) int64 {
	delays := s.lrnDelays(c)
	tot := int64(len(delays))
	tod := s.leftToday(delays, len(delays))
	return tot + tod*1000
}

// stepsLeft extracts the remaining-steps component of Left.
func stepsLeft(left int64) int64 { return left % 1000 }

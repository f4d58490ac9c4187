package scheduler

import (
	"math/rand"
	"sort"

	"github.com/flashgrid/srscore/internal/decks"
	"github.com/flashgrid/srscore/internal/model"
)

// limitWalker computes each deck's remaining daily quota intersected with
// every ancestor's remaining quota, memoized, with takes subtracted from
// ancestors' residuals so parent limits dominate.
type limitWalker struct {
	s        *Scheduler
	residual map[int64]int64
	kind     string // "new" or "rev"
}

func newLimitWalker(s *Scheduler, kind string) *limitWalker {
	return &limitWalker{s: s, residual: map[int64]int64{}, kind: kind}
}

func (w *limitWalker) remaining(d *model.Deck) int64 {
	if v, ok := w.residual[d.ID]; ok {
		return v
	}
	var own int64
	if d.Dyn {
		own = reportLimit
	} else {
		conf := w.s.Decks.Config(d)
		switch w.kind {
		case "new":
			own = conf.New.PerDay + d.ExtendNew - d.NewToday.Count
		case "rev":
			own = conf.Rev.PerDay + d.ExtendRev - d.RevToday.Count
		}
		if own < 0 {
			own = 0
		}
	}
	for _, p := range w.s.Decks.Parents(d) {
		if pr := w.remaining(p); pr < own {
			own = pr
		}
	}
	w.residual[d.ID] = own
	return own
}

func (w *limitWalker) take(d *model.Deck, n int64) {
	w.residual[d.ID] -= n
	for _, p := range w.s.Decks.Parents(d) {
		w.residual[p.ID] -= n
	}
}

// Reset rebuilds the in-memory queues from store truth: which cards are
// due, in deck-limit order, for the currently active deck set.
func (s *Scheduler) Reset() error {
	active := s.Decks.Selected()
	today := s.Today()
	for _, d := range active {
		decks.TickCounters(d, today)
	}

	ids := make([]int64, len(active))
	for i, d := range active {
		ids[i] = d.ID
	}
	all, err := s.Store.CardsInDecks(ids)
	if err != nil {
		return err
	}

	byDeck := map[int64][]*model.Card{}
	for _, c := range all {
		byDeck[c.DeckID] = append(byDeck[c.DeckID], c)
	}

	newWalker := newLimitWalker(s, "new")
	revWalker := newLimitWalker(s, "rev")

	var newQ, learnQ, dayLearnQ, revQ []*model.Card
	cutoff := s.DayCutoff()

	for _, d := range active {
		cards := byDeck[d.ID]
		conf := s.Decks.Config(d)

		var newCands, revCands []*model.Card
		for _, c := range cards {
			switch c.Queue {
			case model.QueueNew:
				newCands = append(newCands, c)
			case model.QueueLearning:
				if c.Due <= s.nowUnix()+int64(s.Conf.CollapseTime) {
					learnQ = append(learnQ, c)
				}
			case model.QueueDayLearning:
				if c.Due <= today {
					dayLearnQ = append(dayLearnQ, c)
				}
			case model.QueueReview:
				effDue := c.Due
				if c.Filtered() {
					effDue = c.OriginalDue
				}
				if effDue <= today || d.Dyn {
					revCands = append(revCands, c)
				}
			}
		}

		if conf.New.Order == model.NewCardOrderRandom {
			shuffleCards(newCands, s.Rand)
		} else {
			sort.Slice(newCands, func(i, j int) bool { return newCands[i].Due < newCands[j].Due })
		}
		if d.Dyn {
			// Filtered decks were materialized in due-order already; index
			// order (negative due) is preserved.
			sort.Slice(revCands, func(i, j int) bool { return revCands[i].Due < revCands[j].Due })
		} else {
			sort.Slice(revCands, func(i, j int) bool { return revCands[i].Due < revCands[j].Due })
		}

		newLimit := newWalker.remaining(d)
		if int64(len(newCands)) < newLimit {
			newLimit = int64(len(newCands))
		}
		if newLimit > 0 {
			newQ = append(newQ, newCands[:newLimit]...)
			newWalker.take(d, newLimit)
		}

		revLimit := revWalker.remaining(d)
		if int64(len(revCands)) < revLimit {
			revLimit = int64(len(revCands))
		}
		if revLimit > 0 {
			revQ = append(revQ, revCands[:revLimit]...)
			revWalker.take(d, revLimit)
		}
	}

	sort.Slice(learnQ, func(i, j int) bool { return learnQ[i].Due < learnQ[j].Due })
	sort.Slice(dayLearnQ, func(i, j int) bool { return dayLearnQ[i].Due < dayLearnQ[j].Due })
	shuffleCards(dayLearnQ, rand.New(rand.NewSource(today)))

	s.newQueue = newQ
	s.learnQueue = learnQ
	s.dayLearnQueue = dayLearnQ
	s.revQueue = revQ
	s.newCountSnapshot = int64(len(newQ))
	s.revCountSnapshot = int64(len(revQ))
	s.reps = 0
	return nil
}

func shuffleCards(cards []*model.Card, r *rand.Rand) {
	for i := len(cards) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
}

func popFront(q *[]*model.Card) *model.Card {
	if len(*q) == 0 {
		return nil
	}
	c := (*q)[0]
	*q = (*q)[1:]
	return c
}

// timeForNewCard decides whether the next card should come from the new
// queue rather than review/day-learning, per the collection's configured
// new-card spread (first, last, or interleaved with reviews).
func (s *Scheduler) timeForNewCard() bool {
	if len(s.newQueue) == 0 {
		return false
	}
	switch s.Conf.NewSpread {
	case model.NewSpreadFirst:
		return true
	case model.NewSpreadLast:
		return len(s.revQueue) == 0 && len(s.dayLearnQueue) == 0
	default: // Distribute
		if s.newCountSnapshot == 0 {
			return false
		}
		modulus := ceilDiv(s.newCountSnapshot+s.revCountSnapshot, s.newCountSnapshot)
		if modulus < 2 && s.revCountSnapshot > 0 {
			modulus = 2
		}
		return s.reps%modulus == 0
	}
}

func ceilDiv(a, b int64) int64 {
	if b == 0 {
		return 1
	}
	return (a + b - 1) / b
}

// GetNextCard selects the next card to study: due learning cards first,
// then an interleaved new/review mix, falling back to day-learning and,
// as a last resort, a learning card that's close enough to due.
func (s *Scheduler) GetNextCard() *model.Card {
	now := s.nowUnix()

	if len(s.learnQueue) > 0 && s.learnQueue[0].Due <= now {
		return popFront(&s.learnQueue)
	}
	if s.timeForNewCard() {
		if c := popFront(&s.newQueue); c != nil {
			return c
		}
	}
	if c := popFront(&s.revQueue); c != nil {
		return c
	}
	if c := popFront(&s.dayLearnQueue); c != nil {
		return c
	}
	if c := popFront(&s.newQueue); c != nil {
		return c
	}
	if len(s.learnQueue) > 0 && s.learnQueue[0].Due <= now+int64(s.Conf.CollapseTime) {
		return popFront(&s.learnQueue)
	}
	return nil
}

// Counts reports how many cards remain in each in-memory queue, for
// display purposes — it reads the same state GetNextCard consumes.
func (s *Scheduler) Counts() (newCount, lrnCount, revCount int64) {
	return int64(len(s.newQueue)), int64(len(s.learnQueue) + len(s.dayLearnQueue)), int64(len(s.revQueue))
}

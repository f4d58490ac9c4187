package scheduler

import (
	"math"
	"sort"
	"strings"

	"github.com/flashgrid/srscore/internal/model"
)

// returnToOrigin moves a card out of its filtered deck and back to its
// origin deck. If that deck had resched=false and this wasn't a lapse,
// the card reverts to New — filtered study without rescheduling doesn't
// consume the card.
func (s *Scheduler) returnToOrigin(c *model.Card, lapse bool) {
	filteredDeckID := c.DeckID
	wasResched := true
	if d, err := s.Decks.Get(filteredDeckID); err == nil && d.Dynamic != nil {
		wasResched = d.Dynamic.Resched
	}

	c.DeckID = c.OriginalDeck
	c.OriginalDeck = 0
	c.OriginalDue = 0

	if !wasResched && !lapse {
		c.Queue = model.QueueNew
		c.Type = model.TypeNew
		c.Due = s.nextPos()
	}
}

func (s *Scheduler) nextPos() int64 {
	s.Conf.NextPos++
	return s.Conf.NextPos
}

// dynIvlBoost computes the enlarged interval for a filtered-deck review
// card seen for the first time while rescheduling is enabled: the card
// gets credit for time elapsed since it was due, scaled by its ease.
func (s *Scheduler) dynIvlBoost(c *model.Card, today int64) int64 {
	elapsed := c.Ivl - (c.OriginalDue - today)
	factor := (float64(c.Factor)/1000 + 1.2) / 2
	newIvl := int64(math.Floor(float64(elapsed) * factor))
	if newIvl < c.Ivl {
		newIvl = c.Ivl
	}
	if newIvl < 1 {
		newIvl = 1
	}
	maxIvl := s.revConf(c).MaxIvl
	if newIvl > maxIvl {
		newIvl = maxIvl
	}
	return newIvl
}

// EmptyFiltered restores every card currently borrowed into deckID to its
// origin deck.
func (s *Scheduler) EmptyFiltered(deckID int64) error {
	cards, err := s.Store.CardsInDecks([]int64{deckID})
	if err != nil {
		return err
	}
	for _, c := range cards {
		if !c.Filtered() {
			continue
		}
		savedDue := c.OriginalDue
		c.DeckID = c.OriginalDeck
		c.OriginalDeck = 0
		c.OriginalDue = 0
		c.Due = savedDue
		if c.Queue == model.QueueLearning || c.Queue == model.QueueDayLearning {
			c.Type = model.TypeNew
			c.Queue = model.QueueNew
			c.Due = s.nextPos()
		}
		if err := s.Store.UpdateCard(c); err != nil {
			return err
		}
	}
	return nil
}

// searchCardsByDeckName resolves the minimal search grammar this package
// supports — "deck:Name" — against the deck registry. A full search
// query language is an external collaborator; this is enough to drive
// filtered-deck rebuilds, whose terms are deck-scoped by convention.
func (s *Scheduler) searchCardsByDeckName(search string) ([]*model.Card, error) {
	name := strings.TrimPrefix(search, "deck:")
	d := s.Decks.ByName(name)
	if d == nil {
		return nil, nil
	}
	ids := []int64{d.ID}
	for _, c := range s.Decks.Children(d) {
		ids = append(ids, c.ID)
	}
	return s.Store.CardsInDecks(ids)
}

// RebuildFiltered empties deckID of any cards it currently holds, then
// refills it by running each of its search terms against the deck
// registry, ordering and limiting matches per term.
func (s *Scheduler) RebuildFiltered(deckID int64) error {
	if err := s.EmptyFiltered(deckID); err != nil {
		return err
	}
	d, err := s.Decks.Get(deckID)
	if err != nil || d.Dynamic == nil {
		return err
	}

	var matched []*model.Card
	for _, term := range d.Dynamic.Terms {
		cands, err := s.searchCardsByDeckName(term.Search)
		if err != nil {
			return err
		}
		cands = orderDynCards(cands, term.Order)
		if term.Limit > 0 && len(cands) > term.Limit {
			cands = cands[:term.Limit]
		}
		matched = append(matched, cands...)
	}

	today := s.Today()
	for i, c := range matched {
		origin := c.DeckID
		c.OriginalDeck = origin
		c.OriginalDue = c.Due
		c.DeckID = deckID
		c.Due = -100000 + int64(i)
		if c.Type == model.TypeReview && c.OriginalDue <= today {
			c.Queue = model.QueueReview
		} else {
			c.Queue = model.QueueNew
		}
		if err := s.Store.UpdateCard(c); err != nil {
			return err
		}
	}
	return nil
}

// orderDynCards sorts cards by a filtered-deck term's ordering mode.
func orderDynCards(cards []*model.Card, order int) []*model.Card {
	less := func(i, j int) bool { return false }
	switch order {
	case model.DynOldest:
		less = func(i, j int) bool { return cards[i].ID < cards[j].ID }
	case model.DynSmallInt:
		less = func(i, j int) bool { return cards[i].Ivl < cards[j].Ivl }
	case model.DynBigInt:
		less = func(i, j int) bool { return cards[i].Ivl > cards[j].Ivl }
	case model.DynLapses:
		less = func(i, j int) bool { return cards[i].Lapses > cards[j].Lapses }
	case model.DynAdded:
		less = func(i, j int) bool { return cards[i].ID < cards[j].ID }
	case model.DynReverseAdd:
		less = func(i, j int) bool { return cards[i].ID > cards[j].ID }
	case model.DynDue, model.DynDuePriority:
		less = func(i, j int) bool { return cards[i].Due < cards[j].Due }
	case model.DynRandom:
		return cards // caller-provided order treated as already-random
	}
	sort.SliceStable(cards, less)
	return cards
}

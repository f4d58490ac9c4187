// Package model holds the plain data types shared by every layer of the
// scheduler: cards, notes, decks, deck configuration groups, note types and
// review-log entries. Nothing in this package touches storage or scheduling
// policy; it is the vocabulary the rest of the module speaks.
package model

import "encoding/json"

// Card type values (Card.Type).
const (
	TypeNew      = 0
	TypeLearning = 1
	TypeReview   = 2
)

// Card queue values (Card.Queue).
const (
	QueueSuspended    = -1
	QueueBuried       = -2
	QueueNew          = 0
	QueueLearning     = 1
	QueueReview       = 2
	QueueDayLearning  = 3
)

// Ease/grade values.
const (
	EaseAgain = 1
	EaseHard  = 2
	EaseGood  = 3
	EaseEasy  = 4
)

// Revlog entry types (RevlogEntry.Type).
const (
	RevLearning = 0
	RevReview   = 1
	RevRelearn  = 2
	RevCram     = 3
)

const (
	StartingFactor = 2500
	FactorMin      = 1300
)

// Leech actions (LapseConf.LeechAction).
const (
	LeechSuspend = 0
	LeechTagOnly = 1
)

// New-card interleave policy (CollectionConf.NewSpread).
const (
	NewSpreadDistribute = 0
	NewSpreadLast       = 1
	NewSpreadFirst      = 2
)

// New-card intra-deck ordering.
const (
	NewCardOrderDue    = 0
	NewCardOrderRandom = 1
)

// Filtered-deck ordering terms (DYN_*).
const (
	DynOldest      = 0
	DynRandom      = 1
	DynSmallInt    = 2
	DynBigInt      = 3
	DynLapses      = 4
	DynAdded       = 5
	DynDue         = 6
	DynReverseAdd  = 7
	DynDuePriority = 8
)

// Grave (tombstone) entity kinds.
const (
	GraveCard = 0
	GraveNote = 1
	GraveDeck = 2
)

// Card is the unit of study. Field semantics follow the legacy Anki schema
// bit-for-bit so that a SQLite file produced by this module is
// wire-compatible with the original.
type Card struct {
	ID           int64
	NoteID       int64
	DeckID       int64
	Ord          int // template ordinal (Standard) or cloze number (Cloze)
	Mod          int64
	USN          int64
	Type         int
	Queue        int
	Due          int64
	Ivl          int64
	Factor       int64
	Reps         int64
	Lapses       int64
	Left         int64
	OriginalDue  int64 // odue
	OriginalDeck int64 // odid
	Flags        int
	Data         string
}

// Suspended reports whether the card is parked in the suspended queue.
func (c *Card) Suspended() bool { return c.Queue == QueueSuspended }

// Buried reports whether the card is parked in the buried queue.
func (c *Card) Buried() bool { return c.Queue == QueueBuried }

// Filtered reports whether the card currently lives in a filtered deck.
func (c *Card) Filtered() bool { return c.OriginalDeck != 0 }

// Suspend moves the card to the suspended queue, preserving Type.
func (c *Card) Suspend() { c.Queue = QueueSuspended }

// Bury moves the card to the buried queue, preserving Type.
func (c *Card) Bury() { c.Queue = QueueBuried }

// Restore returns a suspended/buried card to its natural queue (== Type).
func (c *Card) Restore() { c.Queue = c.Type }

// Note is the content bearer that cards are generated from.
type Note struct {
	ID     int64
	Guid   string
	ModelID int64
	Mod    int64
	USN    int64
	Tags   []string
	Fields []string
	SortField string
	Checksum  uint32
	Flags  int
	Data   string
}

// HasTag reports whether the note carries the given tag.
func (n *Note) HasTag(tag string) bool {
	for _, t := range n.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// AddTag adds tag if not already present.
func (n *Note) AddTag(tag string) {
	if !n.HasTag(tag) {
		n.Tags = append(n.Tags, tag)
	}
}

// RemoveTag removes tag if present.
func (n *Note) RemoveTag(tag string) {
	out := n.Tags[:0]
	for _, t := range n.Tags {
		if t != tag {
			out = append(out, t)
		}
	}
	n.Tags = out
}

// DayCounter is a lazily-reset per-deck daily counter: [dayStamp, value].
type DayCounter struct {
	Day   int64
	Count int64
}

// Deck is a named, hierarchical ("::" separated) bucket of cards.
type Deck struct {
	ID       int64
	Name     string
	ConfID   int64 // 0 for filtered decks, which carry inline config
	Dyn      bool
	Collapsed bool
	USN      int64
	Desc     string

	NewToday  DayCounter
	RevToday  DayCounter
	LrnToday  DayCounter
	TimeToday DayCounter

	ExtendNew int64
	ExtendRev int64

	// Filtered-deck-only fields.
	Dynamic *DynamicDeckConf
}

// DynamicDeckConf holds the inline configuration of a filtered deck.
type DynamicDeckConf struct {
	Terms        []DynTerm
	Resched      bool
	Return       bool
	Delays       []int64 // relearn steps, minutes; empty means "no separate steps"
	Separate     bool
	PreviewDelay int64
}

// DynTerm is one search clause of a filtered deck: (search, limit, order).
type DynTerm struct {
	Search string
	Limit  int
	Order  int
}

// NewConf holds "new card" scheduling parameters for a deck config group.
type NewConf struct {
	Delays         []float64 // minutes
	Ints           []int64   // [graduating, easy, (unused lapse-ivl slot)]
	InitialFactor  int64
	Order          int // NewCardOrderDue/Random
	PerDay         int64
	Bury           bool
	Separate       bool
}

// LapseConf holds relearning parameters.
type LapseConf struct {
	Delays      []float64 // minutes
	Mult        float64
	MinInt      int64
	LeechFails  int64
	LeechAction int
}

// RevConf holds mature-review parameters.
type RevConf struct {
	PerDay     int64
	Ease4      float64
	IvlFct     float64
	MaxIvl     int64
	Bury       bool
	HardFactor float64
}

// DeckConfig is a named, shareable configuration group.
type DeckConfig struct {
	ID       int64
	Name     string
	New      NewConf
	Lapse    LapseConf
	Rev      RevConf
	MaxTaken int64
	Timer    int
	Autoplay bool
	Replayq  bool
}

// ModelKind distinguishes Standard (one template per card position) from
// Cloze (one template, cards generated per cloze number) note types.
type ModelKind int

const (
	KindStandard ModelKind = iota
	KindCloze
)

// ReqKind classifies how a template's question side depends on its note's
// fields: not at all, requiring all of a set, or requiring any of a set.
type ReqKind int

const (
	ReqNone ReqKind = iota
	ReqAll
	ReqAny
)

// TemplateRequirement is one precomputed requirement-vector entry.
type TemplateRequirement struct {
	Ord    int
	Kind   ReqKind
	Fields []int
}

// CardTemplate is one card-producing template of a Standard model, or the
// single template of a Cloze model.
type CardTemplate struct {
	Name      string
	QFmt      string
	AFmt      string
	Styling   string
	DeckOverride int64 // 0 means "no override"
}

// Model (note type) defines field layout and the templates that render
// cards from notes of this type.
type Model struct {
	ID            int64
	Name          string
	Kind          ModelKind
	Fields        []string
	SortField     int
	Templates     []CardTemplate
	Requirements  []TemplateRequirement // Standard only; derived, not persisted verbatim
}

// RevlogEntry is one append-only review-history row.
type RevlogEntry struct {
	ID          int64 // millisecond timestamp, primary key
	CardID      int64
	USN         int64
	Ease        int
	Ivl         int64 // days positive, seconds negative for sub-day
	LastIvl     int64
	Factor      int64
	TimeTakenMs int64
	Type        int
}

// Grave is a tombstone row recorded for sync on deletion.
type Grave struct {
	USN  int64
	OID  int64
	Type int
}

// CollectionConf is the JSON blob stored in col.conf.
type CollectionConf struct {
	ActiveDecks   []int64 `json:"activeDecks"`
	CurDeck       int64   `json:"curDeck"`
	NewSpread     int     `json:"newSpread"`
	CollapseTime  int64   `json:"collapseTime"`
	TimeLim       int64   `json:"timeLim"`
	CurModel      int64   `json:"curModel"`
	NextPos       int64   `json:"nextPos"`
	SchedVer      int     `json:"schedVer"`
	NewBury       bool    `json:"newBury"`
	DayLearnFirst bool    `json:"dayLearnFirst"`
}

// MarshalConf serializes a CollectionConf to its JSON-blob form.
func MarshalConf(c CollectionConf) ([]byte, error) { return json.Marshal(c) }

// UnmarshalConf parses the col.conf JSON blob.
func UnmarshalConf(b []byte) (CollectionConf, error) {
	var c CollectionConf
	err := json.Unmarshal(b, &c)
	return c, err
}

// Package srscore is the collection façade: it owns the store, the deck
// and model registries, the card materializer, the scheduler and the
// undo log, and exposes the handful of operations a caller needs —
// AddNote, GetCard, AnswerCard, Save, Close.
package srscore

import (
	"encoding/json"
	"fmt"
	"hash/crc32"
	"time"

	"github.com/google/uuid"

	"github.com/flashgrid/srscore/internal/backup"
	"github.com/flashgrid/srscore/internal/cards"
	"github.com/flashgrid/srscore/internal/decks"
	"github.com/flashgrid/srscore/internal/model"
	"github.com/flashgrid/srscore/internal/notetypes"
	"github.com/flashgrid/srscore/internal/scheduler"
	"github.com/flashgrid/srscore/internal/store"
	"github.com/flashgrid/srscore/internal/undo"
)

// Collection wires every registry to one open store and exposes the
// study-session surface callers need.
type Collection struct {
	Store       store.Store
	Decks       *decks.Registry
	NoteTypes   *notetypes.Registry
	Materializer *cards.Materializer
	Scheduler   *scheduler.Scheduler
	Undo        *undo.Log
	Backup      *backup.Manager

	path     string
	modified bool
	crt      int64
}

// Open loads (migrating if necessary) the collection at path and wires
// every registry against it. A brand-new file gets the legacy defaults:
// deck 1, no note types, a 4am-aligned creation epoch.
func Open(path, backupDir string) (*Collection, error) {
	st, err := store.Open(path)
	if err != nil {
		return nil, err
	}

	deckReg := decks.NewRegistry()
	modelReg := notetypes.NewRegistry()
	conf := model.CollectionConf{
		ActiveDecks:  []int64{decks.DefaultDeckID},
		CurDeck:      decks.DefaultDeckID,
		NewSpread:    model.NewSpreadDistribute,
		CollapseTime: 1200,
		SchedVer:     2,
	}
	crt := dayCutoffEpoch(time.Now())

	row, err := st.GetCollectionRow()
	if err == nil {
		crt = row.Crt
		if c, uerr := model.UnmarshalConf(row.Conf); uerr == nil {
			conf = c
		}
		if len(row.Decks) > 0 {
			_ = json.Unmarshal(row.Decks, &deckReg.Decks)
		}
		if len(row.DConf) > 0 {
			_ = json.Unmarshal(row.DConf, &deckReg.Configs)
		}
		if len(row.Models) > 0 {
			var models map[int64]*model.Model
			if json.Unmarshal(row.Models, &models) == nil {
				for _, m := range models {
					modelReg.Add(m)
				}
			}
		}
	} else {
		if err := st.SaveCollectionRow(&store.CollectionRow{Crt: crt, Mod: time.Now().UnixMilli()}); err != nil {
			return nil, err
		}
	}

	sched := scheduler.New(st, deckReg, undo.New(st, deckReg), crt, conf, nil)
	undoLog := sched.Undo

	c := &Collection{
		Store:        st,
		Decks:        deckReg,
		NoteTypes:    modelReg,
		Materializer: &cards.Materializer{Decks: deckReg},
		Scheduler:    sched,
		Undo:         undoLog,
		Backup:       backup.NewManager(path, backupDir),
		path:         path,
		crt:          crt,
	}
	if err := sched.Reset(); err != nil {
		return nil, err
	}
	return c, nil
}

// dayCutoffEpoch picks the creation timestamp for a fresh collection,
// aligned to 4am local time (a card's "day" rolls over at this hour, not
// midnight).
func dayCutoffEpoch(now time.Time) int64 {
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), 4, 0, 0, 0, now.Location())
	if cutoff.After(now) {
		cutoff = cutoff.AddDate(0, 0, -1)
	}
	return cutoff.Unix()
}

func checksum(field string) uint32 {
	return crc32.ChecksumIEEE([]byte(field))
}

// AddNote creates note under the given model and deck, assigns its id/guid/
// checksum, persists it, materializes cards via the Card materializer, and
// persists those too. Returns the created note and cards.
func (c *Collection) AddNote(modelID, deckID int64, fieldVals map[string]string, tags []string) (*model.Note, []*model.Card, error) {
	m, err := c.NoteTypes.Get(modelID)
	if err != nil {
		return nil, nil, err
	}

	fields := make([]string, len(m.Fields))
	for i, name := range m.Fields {
		fields[i] = fieldVals[name]
	}

	id, err := c.Store.NextTimestampID("notes")
	if err != nil {
		return nil, nil, err
	}
	sortField := ""
	if m.SortField < len(fields) {
		sortField = fields[m.SortField]
	}
	note := &model.Note{
		ID:        id,
		Guid:      uuid.NewString(),
		ModelID:   modelID,
		Mod:       time.Now().Unix(),
		USN:       -1,
		Tags:      tags,
		Fields:    fields,
		SortField: sortField,
		Checksum:  checksum(firstOrEmpty(fields)),
	}
	if err := c.Store.InsertNote(note); err != nil {
		return nil, nil, err
	}

	plan := c.Materializer.Generate(note, m, nil, deckID, c.nextPos)
	for _, card := range plan.ToCreate {
		id, err := c.Store.NextTimestampID("cards")
		if err != nil {
			return nil, nil, err
		}
		card.ID = id
		card.Mod = note.Mod
		card.USN = -1
		if err := c.Store.InsertCard(card); err != nil {
			return nil, nil, err
		}
	}
	c.modified = true
	return note, plan.ToCreate, nil
}

func firstOrEmpty(fields []string) string {
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func (c *Collection) nextPos() int64 {
	c.Scheduler.Conf.NextPos++
	return c.Scheduler.Conf.NextPos
}

// RegenerateCards re-runs the materializer for an existing note, preserving
// scheduling state on cards whose ordinal still produces content and
// deleting (with a grave tombstone) those that no longer do. Nothing in
// the collection runs it automatically when a model's templates change.
func (c *Collection) RegenerateCards(noteID int64) error {
	note, err := c.Store.GetNote(noteID)
	if err != nil {
		return err
	}
	m, err := c.NoteTypes.Get(note.ModelID)
	if err != nil {
		return err
	}
	existing, err := c.Store.CardsForNote(noteID)
	if err != nil {
		return err
	}
	defaultDeck := int64(decks.DefaultDeckID)
	if len(existing) > 0 {
		defaultDeck = existing[0].DeckID
	}
	plan := c.Materializer.Generate(note, m, existing, defaultDeck, c.nextPos)
	for _, card := range plan.ToCreate {
		id, err := c.Store.NextTimestampID("cards")
		if err != nil {
			return err
		}
		card.ID = id
		card.Mod = time.Now().Unix()
		card.USN = -1
		if err := c.Store.InsertCard(card); err != nil {
			return err
		}
	}
	for _, id := range plan.ToDelete {
		usn, err := c.Store.NextTimestampID("graves")
		if err != nil {
			return err
		}
		if err := c.Store.InsertGrave(&model.Grave{USN: usn, OID: id, Type: model.GraveCard}); err != nil {
			return err
		}
		if err := c.Store.DeleteCard(id); err != nil {
			return err
		}
	}
	c.modified = true
	return nil
}

// DeleteNote removes a note and cascades to its cards, logging tombstones
// for both in the graves table.
func (c *Collection) DeleteNote(noteID int64) error {
	cardsForNote, err := c.Store.CardsForNote(noteID)
	if err != nil {
		return err
	}
	for _, card := range cardsForNote {
		usn, err := c.Store.NextTimestampID("graves")
		if err != nil {
			return err
		}
		if err := c.Store.InsertGrave(&model.Grave{USN: usn, OID: card.ID, Type: model.GraveCard}); err != nil {
			return err
		}
	}
	usn, err := c.Store.NextTimestampID("graves")
	if err != nil {
		return err
	}
	if err := c.Store.InsertGrave(&model.Grave{USN: usn, OID: noteID, Type: model.GraveNote}); err != nil {
		return err
	}
	if err := c.Store.DeleteNote(noteID); err != nil {
		return err
	}
	c.modified = true
	return nil
}

// GetCard returns the next card to study, or nil if the queues are empty.
func (c *Collection) GetCard() *model.Card {
	return c.Scheduler.GetNextCard()
}

// AnswerCard applies a grade to card and persists the result.
func (c *Collection) AnswerCard(card *model.Card, ease int, timeTakenMs int64) error {
	if err := c.Scheduler.AnswerCard(card, ease, timeTakenMs); err != nil {
		return err
	}
	c.modified = true
	return nil
}

// Save flushes the deck/model/config registries back to the col row. The
// card and note tables are already durable (each write commits
// immediately); this only persists the JSON-blob registries and clears
// the dirty flag.
func (c *Collection) Save() error {
	if !c.modified {
		return nil
	}
	decksJSON, err := json.Marshal(c.Decks.Decks)
	if err != nil {
		return fmt.Errorf("collection: marshal decks: %w", err)
	}
	dconfJSON, err := json.Marshal(c.Decks.Configs)
	if err != nil {
		return fmt.Errorf("collection: marshal dconf: %w", err)
	}
	modelsJSON, err := json.Marshal(c.NoteTypes.Models)
	if err != nil {
		return fmt.Errorf("collection: marshal models: %w", err)
	}
	confJSON, err := model.MarshalConf(c.Scheduler.Conf)
	if err != nil {
		return fmt.Errorf("collection: marshal conf: %w", err)
	}
	row := &store.CollectionRow{
		Crt:    c.crt,
		Mod:    time.Now().UnixMilli(),
		Conf:   confJSON,
		Models: modelsJSON,
		Decks:  decksJSON,
		DConf:  dconfJSON,
		Tags:   []byte("{}"),
	}
	if err := c.Store.SaveCollectionRow(row); err != nil {
		return err
	}
	c.modified = false
	return nil
}

// Close flushes (if save) and releases the underlying store handle. A
// failed flush propagates — the caller must not assume persistence.
func (c *Collection) Close(save bool) error {
	if save {
		if err := c.Save(); err != nil {
			return err
		}
	}
	return c.Store.Close()
}

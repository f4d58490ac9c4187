// Package store is the persistence adapter: parameterized queries and
// transactions against the col/notes/cards/revlog/graves tables, plus
// monotonic identifier generation. It is the only package that knows SQL.
package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/flashgrid/srscore/internal/model"
	"github.com/flashgrid/srscore/internal/store/migrations"
)

// CollectionRow mirrors the single-row col table.
type CollectionRow struct {
	ID     int64
	Crt    int64
	Mod    int64
	Scm    int64
	USN    int64
	Ls     int64
	Conf   []byte // JSON
	Models []byte // JSON map of id->model
	Decks  []byte // JSON map of id->deck
	DConf  []byte // JSON map of id->config
	Tags   []byte // JSON
}

// Store is the adapter's public contract. SQLiteStore is the only
// implementation; the interface exists so the registries/scheduler above
// it can be tested against a fake if ever needed.
type Store interface {
	GetCollectionRow() (*CollectionRow, error)
	SaveCollectionRow(row *CollectionRow) error

	InsertNote(n *model.Note) error
	UpdateNote(n *model.Note) error
	GetNote(id int64) (*model.Note, error)
	DeleteNote(id int64) error
	NotesByChecksum(modelID int64, csum uint32) ([]*model.Note, error)

	InsertCard(c *model.Card) error
	UpdateCard(c *model.Card) error
	GetCard(id int64) (*model.Card, error)
	DeleteCard(id int64) error
	CardsForNote(noteID int64) ([]*model.Card, error)
	CardsInDecks(deckIDs []int64) ([]*model.Card, error)
	RestoreBuriedForNote(noteID int64) error

	InsertRevlog(r *model.RevlogEntry) error
	LatestRevlogForCard(cardID int64) (*model.RevlogEntry, error)
	DeleteRevlog(id int64) error

	InsertGrave(g *model.Grave) error

	NextTimestampID(table string) (int64, error)

	BeginTx() (*sql.Tx, error)
	CommitTx(tx *sql.Tx) error
	RollbackTx(tx *sql.Tx) error

	Close() error
}

// SQLiteStore is the sole Store implementation, backed by
// github.com/mattn/go-sqlite3 (the only SQLite driver anywhere in the
// example pack).
type SQLiteStore struct {
	db *sql.DB
}

// Open creates (if needed) and migrates the collection database at path.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("store: ping %s: %w", path, err)
	}
	if err := migrations.Apply(db); err != nil {
		return nil, fmt.Errorf("store: migrate %s: %w", path, err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) BeginTx() (*sql.Tx, error)        { return s.db.Begin() }
func (s *SQLiteStore) CommitTx(tx *sql.Tx) error        { return tx.Commit() }
func (s *SQLiteStore) RollbackTx(tx *sql.Tx) error      { return tx.Rollback() }

// NextTimestampID returns max(millisNow, maxExistingID+1), guaranteeing
// uniqueness across a table even under clock skew.
func (s *SQLiteStore) NextTimestampID(table string) (int64, error) {
	var maxID sql.NullInt64
	q := fmt.Sprintf("SELECT MAX(id) FROM %s", table) // table is an internal constant, never user input
	if err := s.db.QueryRow(q).Scan(&maxID); err != nil {
		return 0, fmt.Errorf("store: next id for %s: %w", table, err)
	}
	now := time.Now().UnixMilli()
	if maxID.Valid && maxID.Int64+1 > now {
		return maxID.Int64 + 1, nil
	}
	return now, nil
}

func (s *SQLiteStore) GetCollectionRow() (*CollectionRow, error) {
	row := s.db.QueryRow(`SELECT id, crt, mod, scm, usn, ls, conf, models, decks, dconf, tags FROM col WHERE id = 1`)
	var r CollectionRow
	if err := row.Scan(&r.ID, &r.Crt, &r.Mod, &r.Scm, &r.USN, &r.Ls, &r.Conf, &r.Models, &r.Decks, &r.DConf, &r.Tags); err != nil {
		return nil, fmt.Errorf("store: get collection row: %w", err)
	}
	return &r, nil
}

func (s *SQLiteStore) SaveCollectionRow(row *CollectionRow) error {
	_, err := s.db.Exec(`
		INSERT INTO col (id, crt, mod, scm, usn, ls, conf, models, decks, dconf, tags)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			crt=excluded.crt, mod=excluded.mod, scm=excluded.scm, usn=excluded.usn,
			ls=excluded.ls, conf=excluded.conf, models=excluded.models,
			decks=excluded.decks, dconf=excluded.dconf, tags=excluded.tags`,
		row.Crt, row.Mod, row.Scm, row.USN, row.Ls, row.Conf, row.Models, row.Decks, row.DConf, row.Tags)
	if err != nil {
		return fmt.Errorf("store: save collection row: %w", err)
	}
	return nil
}

const fieldSep = "\x1f"

func joinFields(f []string) string   { return strings.Join(f, fieldSep) }
func splitFields(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, fieldSep)
}

func joinTags(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	return " " + strings.Join(tags, " ") + " "
}

func splitTags(s string) []string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, " ")
}

func (s *SQLiteStore) InsertNote(n *model.Note) error {
	_, err := s.db.Exec(`INSERT INTO notes (id, guid, mid, mod, usn, tags, flds, sfld, csum, flags, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.Guid, n.ModelID, n.Mod, n.USN, joinTags(n.Tags), joinFields(n.Fields), n.SortField, n.Checksum, n.Flags, n.Data)
	if err != nil {
		return fmt.Errorf("store: insert note %d: %w", n.ID, err)
	}
	return nil
}

func (s *SQLiteStore) UpdateNote(n *model.Note) error {
	_, err := s.db.Exec(`UPDATE notes SET guid=?, mid=?, mod=?, usn=?, tags=?, flds=?, sfld=?, csum=?, flags=?, data=? WHERE id=?`,
		n.Guid, n.ModelID, n.Mod, n.USN, joinTags(n.Tags), joinFields(n.Fields), n.SortField, n.Checksum, n.Flags, n.Data, n.ID)
	if err != nil {
		return fmt.Errorf("store: update note %d: %w", n.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetNote(id int64) (*model.Note, error) {
	row := s.db.QueryRow(`SELECT id, guid, mid, mod, usn, tags, flds, sfld, csum, flags, data FROM notes WHERE id=?`, id)
	var n model.Note
	var tags, flds string
	if err := row.Scan(&n.ID, &n.Guid, &n.ModelID, &n.Mod, &n.USN, &tags, &flds, &n.SortField, &n.Checksum, &n.Flags, &n.Data); err != nil {
		return nil, fmt.Errorf("store: get note %d: %w", id, err)
	}
	n.Tags = splitTags(tags)
	n.Fields = splitFields(flds)
	return &n, nil
}

func (s *SQLiteStore) DeleteNote(id int64) error {
	_, err := s.db.Exec(`DELETE FROM notes WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("store: delete note %d: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) NotesByChecksum(modelID int64, csum uint32) ([]*model.Note, error) {
	rows, err := s.db.Query(`SELECT id, guid, mid, mod, usn, tags, flds, sfld, csum, flags, data FROM notes WHERE mid=? AND csum=?`, modelID, csum)
	if err != nil {
		return nil, fmt.Errorf("store: notes by checksum: %w", err)
	}
	defer rows.Close()
	var out []*model.Note
	for rows.Next() {
		var n model.Note
		var tags, flds string
		if err := rows.Scan(&n.ID, &n.Guid, &n.ModelID, &n.Mod, &n.USN, &tags, &flds, &n.SortField, &n.Checksum, &n.Flags, &n.Data); err != nil {
			return nil, fmt.Errorf("store: notes by checksum scan: %w", err)
		}
		n.Tags = splitTags(tags)
		n.Fields = splitFields(flds)
		out = append(out, &n)
	}
	return out, rows.Err()
}

func scanCard(row interface{ Scan(...any) error }) (*model.Card, error) {
	var c model.Card
	var data string
	if err := row.Scan(&c.ID, &c.NoteID, &c.DeckID, &c.Ord, &c.Mod, &c.USN, &c.Type, &c.Queue, &c.Due,
		&c.Ivl, &c.Factor, &c.Reps, &c.Lapses, &c.Left, &c.OriginalDue, &c.OriginalDeck, &c.Flags, &data); err != nil {
		return nil, err
	}
	c.Data = data
	return &c, nil
}

const cardCols = `id, nid, did, ord, mod, usn, type, queue, due, ivl, factor, reps, lapses, left, odue, odid, flags, data`

func (s *SQLiteStore) InsertCard(c *model.Card) error {
	_, err := s.db.Exec(`INSERT INTO cards (`+cardCols+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		c.ID, c.NoteID, c.DeckID, c.Ord, c.Mod, c.USN, c.Type, c.Queue, c.Due, c.Ivl, c.Factor, c.Reps, c.Lapses, c.Left, c.OriginalDue, c.OriginalDeck, c.Flags, c.Data)
	if err != nil {
		return fmt.Errorf("store: insert card %d: %w", c.ID, err)
	}
	return nil
}

func (s *SQLiteStore) UpdateCard(c *model.Card) error {
	_, err := s.db.Exec(`UPDATE cards SET nid=?, did=?, ord=?, mod=?, usn=?, type=?, queue=?, due=?, ivl=?, factor=?, reps=?, lapses=?, left=?, odue=?, odid=?, flags=?, data=? WHERE id=?`,
		c.NoteID, c.DeckID, c.Ord, c.Mod, c.USN, c.Type, c.Queue, c.Due, c.Ivl, c.Factor, c.Reps, c.Lapses, c.Left, c.OriginalDue, c.OriginalDeck, c.Flags, c.Data, c.ID)
	if err != nil {
		return fmt.Errorf("store: update card %d: %w", c.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetCard(id int64) (*model.Card, error) {
	row := s.db.QueryRow(`SELECT `+cardCols+` FROM cards WHERE id=?`, id)
	c, err := scanCard(row)
	if err != nil {
		return nil, fmt.Errorf("store: get card %d: %w", id, err)
	}
	return c, nil
}

func (s *SQLiteStore) DeleteCard(id int64) error {
	_, err := s.db.Exec(`DELETE FROM cards WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("store: delete card %d: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) CardsForNote(noteID int64) ([]*model.Card, error) {
	rows, err := s.db.Query(`SELECT `+cardCols+` FROM cards WHERE nid=? ORDER BY ord`, noteID)
	if err != nil {
		return nil, fmt.Errorf("store: cards for note %d: %w", noteID, err)
	}
	defer rows.Close()
	var out []*model.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("store: cards for note scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CardsInDecks(deckIDs []int64) ([]*model.Card, error) {
	if len(deckIDs) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(deckIDs)), ",")
	args := make([]any, len(deckIDs))
	for i, id := range deckIDs {
		args[i] = id
	}
	rows, err := s.db.Query(`SELECT `+cardCols+` FROM cards WHERE did IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("store: cards in decks: %w", err)
	}
	defer rows.Close()
	var out []*model.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("store: cards in decks scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// RestoreBuriedForNote unburies every sibling card of this note: each
// goes back to its own type's queue (New, Learning or Review type values
// line up with the matching queue values).
func (s *SQLiteStore) RestoreBuriedForNote(noteID int64) error {
	_, err := s.db.Exec(`UPDATE cards SET queue=type WHERE nid=? AND queue=?`, noteID, model.QueueBuried)
	if err != nil {
		return fmt.Errorf("store: restore buried for note %d: %w", noteID, err)
	}
	return nil
}

// InsertRevlog appends a review-log row. revlog.id is a millisecond
// timestamp, so two reviews within the same millisecond collide on the
// primary key; this is retried once after a short delay with a bumped id.
func (s *SQLiteStore) InsertRevlog(r *model.RevlogEntry) error {
	_, err := s.db.Exec(`INSERT INTO revlog (id, cid, usn, ease, ivl, lastIvl, factor, time, type) VALUES (?,?,?,?,?,?,?,?,?)`,
		r.ID, r.CardID, r.USN, r.Ease, r.Ivl, r.LastIvl, r.Factor, r.TimeTakenMs, r.Type)
	if err != nil {
		time.Sleep(10 * time.Millisecond)
		r.ID++
		_, err = s.db.Exec(`INSERT INTO revlog (id, cid, usn, ease, ivl, lastIvl, factor, time, type) VALUES (?,?,?,?,?,?,?,?,?)`,
			r.ID, r.CardID, r.USN, r.Ease, r.Ivl, r.LastIvl, r.Factor, r.TimeTakenMs, r.Type)
		if err != nil {
			return fmt.Errorf("store: insert revlog %d (after retry): %w", r.ID, err)
		}
	}
	return nil
}

func (s *SQLiteStore) LatestRevlogForCard(cardID int64) (*model.RevlogEntry, error) {
	row := s.db.QueryRow(`SELECT id, cid, usn, ease, ivl, lastIvl, factor, time, type FROM revlog WHERE cid=? ORDER BY id DESC LIMIT 1`, cardID)
	var r model.RevlogEntry
	if err := row.Scan(&r.ID, &r.CardID, &r.USN, &r.Ease, &r.Ivl, &r.LastIvl, &r.Factor, &r.TimeTakenMs, &r.Type); err != nil {
		return nil, fmt.Errorf("store: latest revlog for card %d: %w", cardID, err)
	}
	return &r, nil
}

func (s *SQLiteStore) DeleteRevlog(id int64) error {
	_, err := s.db.Exec(`DELETE FROM revlog WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("store: delete revlog %d: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) InsertGrave(g *model.Grave) error {
	_, err := s.db.Exec(`INSERT INTO graves (usn, oid, type) VALUES (?, ?, ?)`, g.USN, g.OID, g.Type)
	if err != nil {
		return fmt.Errorf("store: insert grave for %d: %w", g.OID, err)
	}
	return nil
}

// Package httpapi exposes the collection façade over HTTP: a chi router,
// cors and bluemonday middleware, and a set of respondJSON/parseIDParam
// helpers shared by every handler.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/microcosm-cc/bluemonday"

	srscore "github.com/flashgrid/srscore"
	"github.com/flashgrid/srscore/internal/model"
)

var htmlPolicy = bluemonday.UGCPolicy()

func sanitizeHTML(input string) string {
	return htmlPolicy.Sanitize(input)
}

// Handler wraps a Collection and provides HTTP handlers for it.
type Handler struct {
	col *srscore.Collection
}

// NewHandler returns a Handler bound to col.
func NewHandler(col *srscore.Collection) *Handler {
	return &Handler{col: col}
}

// Router builds the full chi.Router for this handler, including request
// logging, panic recovery, and the CORS policy callers pass in.
func (h *Handler) Router(allowedOrigins []string) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.HealthCheck)

		r.Get("/decks", h.ListDecks)
		r.Post("/decks", h.CreateDeck)
		r.Get("/decks/{id}", h.GetDeck)
		r.Get("/decks/{id}/stats", h.GetDeckStats)

		r.Post("/notes", h.CreateNote)
		r.Delete("/notes/{id}", h.DeleteNote)

		r.Get("/cards/next", h.GetNextCard)
		r.Get("/cards/{id}", h.GetCard)
		r.Post("/cards/{id}/answer", h.AnswerCard)
		r.Get("/cards/{id}/next-ivl", h.NextIvl)
		r.Patch("/cards/{id}", h.UpdateCard)

		r.Post("/undo", h.Undo)

		r.Post("/backups", h.CreateBackup)
		r.Post("/backups/restore", h.RestoreBackup)
	})
	return r
}

// Request/response types. Answers use the four-ease scale
// (model.EaseAgain..EaseEasy); there is no "marked" concept, only the
// 0-7 Flags color.

type createDeckRequest struct {
	Name string `json:"name"`
}

type deckResponse struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Dyn    bool   `json:"dyn"`
	ConfID int64  `json:"confId"`
}

type createNoteRequest struct {
	ModelID   int64             `json:"modelId"`
	DeckID    int64             `json:"deckId"`
	FieldVals map[string]string `json:"fieldVals"`
	Tags      []string          `json:"tags"`
}

type answerCardRequest struct {
	Ease        int   `json:"ease"` // 1=Again, 2=Hard, 3=Good, 4=Easy
	TimeTakenMs int64 `json:"timeTakenMs"`
}

type updateCardRequest struct {
	Flag      *int  `json:"flag,omitempty"` // 0-7 color flags
	Suspended *bool `json:"suspended,omitempty"`
}

type restoreBackupRequest struct {
	BackupPath string `json:"backupPath"`
}

func deckToResponse(d *model.Deck) deckResponse {
	return deckResponse{ID: d.ID, Name: d.Name, Dyn: d.Dyn, ConfID: d.ConfID}
}

// Handlers

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "srscore-api",
	})
}

func (h *Handler) ListDecks(w http.ResponseWriter, r *http.Request) {
	out := make([]deckResponse, 0, len(h.col.Decks.Decks))
	for _, d := range h.col.Decks.Decks {
		out = append(out, deckToResponse(d))
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) CreateDeck(w http.ResponseWriter, r *http.Request) {
	var req createDeckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "deck name is required", http.StatusBadRequest)
		return
	}
	d := h.col.Decks.EnsureParents(sanitizeHTML(req.Name))
	respondJSON(w, http.StatusCreated, deckToResponse(d))
}

func (h *Handler) GetDeck(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		http.Error(w, "invalid deck id", http.StatusBadRequest)
		return
	}
	d, err := h.col.Decks.Get(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, deckToResponse(d))
}

func (h *Handler) GetDeckStats(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		http.Error(w, "invalid deck id", http.StatusBadRequest)
		return
	}
	d, err := h.col.Decks.Get(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	newCount, lrnCount, revCount := h.col.Scheduler.Counts()
	respondJSON(w, http.StatusOK, map[string]any{
		"deck": deckToResponse(d),
		"counts": map[string]int64{
			"new":    newCount,
			"learn":  lrnCount,
			"review": revCount,
		},
	})
}

func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req createNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ModelID == 0 || req.DeckID == 0 {
		http.Error(w, "modelId and deckId are required", http.StatusBadRequest)
		return
	}

	sanitizedFields := make(map[string]string, len(req.FieldVals))
	for field, value := range req.FieldVals {
		sanitizedFields[field] = sanitizeHTML(value)
	}
	sanitizedTags := make([]string, len(req.Tags))
	for i, tag := range req.Tags {
		sanitizedTags[i] = sanitizeHTML(tag)
	}

	note, cards, err := h.col.AddNote(req.ModelID, req.DeckID, sanitizedFields, sanitizedTags)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"note":  note,
		"cards": cards,
	})
}

func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		http.Error(w, "invalid note id", http.StatusBadRequest)
		return
	}
	if err := h.col.DeleteNote(id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetNextCard(w http.ResponseWriter, r *http.Request) {
	card := h.col.GetCard()
	if card == nil {
		respondJSON(w, http.StatusOK, nil)
		return
	}
	respondJSON(w, http.StatusOK, card)
}

func (h *Handler) GetCard(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		http.Error(w, "invalid card id", http.StatusBadRequest)
		return
	}
	card, err := h.col.Store.GetCard(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, card)
}

func (h *Handler) AnswerCard(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		http.Error(w, "invalid card id", http.StatusBadRequest)
		return
	}
	var req answerCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Ease < model.EaseAgain || req.Ease > model.EaseEasy {
		http.Error(w, "ease must be 1-4 (Again/Hard/Good/Easy)", http.StatusBadRequest)
		return
	}

	card, err := h.col.Store.GetCard(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	note, err := h.col.Store.GetNote(card.NoteID)
	wasLeech := err == nil && note.HasTag("leech")
	h.col.Undo.PushReview(card, wasLeech)

	if err := h.col.AnswerCard(card, req.Ease, req.TimeTakenMs); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, card)
}

func (h *Handler) NextIvl(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		http.Error(w, "invalid card id", http.StatusBadRequest)
		return
	}
	easeStr := r.URL.Query().Get("ease")
	ease, err := strconv.Atoi(easeStr)
	if err != nil || ease < model.EaseAgain || ease > model.EaseEasy {
		http.Error(w, "ease query param must be 1-4", http.StatusBadRequest)
		return
	}
	card, err := h.col.Store.GetCard(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	ivl := h.col.Scheduler.NextIvl(card, ease)
	respondJSON(w, http.StatusOK, map[string]int64{"intervalSeconds": ivl})
}

func (h *Handler) UpdateCard(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		http.Error(w, "invalid card id", http.StatusBadRequest)
		return
	}
	var req updateCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	card, err := h.col.Store.GetCard(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if req.Flag != nil {
		if *req.Flag < 0 || *req.Flag > 7 {
			http.Error(w, "flag must be 0-7", http.StatusBadRequest)
			return
		}
		card.Flags = *req.Flag
	}
	if req.Suspended != nil {
		if *req.Suspended {
			card.Queue = model.QueueSuspended
		} else if card.Queue == model.QueueSuspended {
			card.Queue = card.Type
		}
	}
	if err := h.col.Store.UpdateCard(card); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, card)
}

func (h *Handler) Undo(w http.ResponseWriter, r *http.Request) {
	if err := h.col.Undo.UndoReview(); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "undone"})
}

func (h *Handler) CreateBackup(w http.ResponseWriter, r *http.Request) {
	path, err := h.col.Backup.Create("default")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{
		"backupPath": path,
		"timestamp":  time.Now().Format(time.RFC3339),
	})
}

// RestoreBackup is unsupported while the daemon holds the collection's
// database open: backup.Manager.Restore requires exclusive access to the
// file it's replacing, which this handler cannot grant without closing
// the very store that's serving the request. Use srsctl's offline restore
// command instead, which closes the collection before calling Restore.
func (h *Handler) RestoreBackup(w http.ResponseWriter, r *http.Request) {
	var req restoreBackupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.BackupPath == "" {
		http.Error(w, "backupPath is required", http.StatusBadRequest)
		return
	}
	http.Error(w, "restore is unsafe while the daemon is running; stop the daemon and run srsctl restore instead", http.StatusConflict)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func parseIDParam(r *http.Request, paramName string) (int64, error) {
	idStr := chi.URLParam(r, paramName)
	return strconv.ParseInt(idStr, 10, 64)
}

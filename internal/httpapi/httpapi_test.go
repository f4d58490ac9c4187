package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	srscore "github.com/flashgrid/srscore"
	"github.com/flashgrid/srscore/internal/decks"
	"github.com/flashgrid/srscore/internal/model"
)

func newTestServer(t *testing.T) (*httptest.Server, *srscore.Collection) {
	t.Helper()
	dir := t.TempDir()
	col, err := srscore.Open(filepath.Join(dir, "collection.db"), filepath.Join(dir, "backups"))
	require.NoError(t, err)
	t.Cleanup(func() { col.Close(false) })

	h := NewHandler(col)
	srv := httptest.NewServer(h.Router([]string{"http://localhost:5173"}))
	t.Cleanup(srv.Close)
	return srv, col
}

func TestHealthCheck(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListDecksIncludesDefault(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/decks")
	require.NoError(t, err)
	defer resp.Body.Close()

	var out []deckResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out, 1)
	assert.Equal(t, "Default", out[0].Name)
}

func TestCreateNoteAndAnswerCard(t *testing.T) {
	srv, col := newTestServer(t)

	m := col.NoteTypes.Add(&model.Model{
		Name:      "Basic",
		Kind:      model.KindStandard,
		Fields:    []string{"Front", "Back"},
		Templates: []model.CardTemplate{{Name: "Card 1", QFmt: "{{Front}}", AFmt: "{{Back}}"}},
	})

	body := strings.NewReader(`{"modelId":` + strconv.FormatInt(m.ID, 10) + `,"deckId":` + strconv.FormatInt(decks.DefaultDeckID, 10) + `,"fieldVals":{"Front":"<script>x</script>hello","Back":"world"}}`)
	resp, err := http.Post(srv.URL+"/api/notes", "application/json", body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		Note  model.Note    `json:"note"`
		Cards []model.Card  `json:"cards"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.Len(t, created.Cards, 1)
	assert.NotContains(t, created.Note.Fields[0], "<script>")

	cardID := created.Cards[0].ID
	answerBody := strings.NewReader(`{"ease":3,"timeTakenMs":1500}`)
	answerResp, err := http.Post(srv.URL+"/api/cards/"+strconv.FormatInt(cardID, 10)+"/answer", "application/json", answerBody)
	require.NoError(t, err)
	defer answerResp.Body.Close()
	assert.Equal(t, http.StatusOK, answerResp.StatusCode)

	var answered model.Card
	require.NoError(t, json.NewDecoder(answerResp.Body).Decode(&answered))
	assert.Equal(t, int64(1), answered.Reps)
}

func TestAnswerCardRejectsBadEase(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Post(srv.URL+"/api/cards/1/answer", "application/json", strings.NewReader(`{"ease":9}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

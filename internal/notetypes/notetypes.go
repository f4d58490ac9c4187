// Package notetypes implements the model registry: Standard and Cloze
// note types, the template/field requirement-vector analysis, and
// cloze-ordinal extraction.
package notetypes

import (
	"errors"
	"fmt"
	"strings"

	"github.com/flashgrid/srscore/internal/model"
)

// ErrModelNotFound is returned when a model id has no registered model.
var ErrModelNotFound = errors.New("note type not found")

// sentinel is the probe value rendered into one field at a time while
// deriving the requirement vector.
const sentinel = "ankiflag"

// Registry holds every model (note type) for a collection, keyed by id.
type Registry struct {
	Models   map[int64]*model.Model
	Renderer Renderer
	nextID   int64
}

// NewRegistry returns an empty registry using the default renderer (see
// render.go) — callers may swap in their own Renderer since rendering
// itself is an external collaborator.
func NewRegistry() *Registry {
	return &Registry{Models: map[int64]*model.Model{}, Renderer: DefaultRenderer{}, nextID: 1}
}

// Get returns a model by id.
func (r *Registry) Get(id int64) (*model.Model, error) {
	m, ok := r.Models[id]
	if !ok {
		return nil, fmt.Errorf("notetypes: %w: id=%d", ErrModelNotFound, id)
	}
	return m, nil
}

// Add registers m, assigning an id if it doesn't have one, and runs the
// requirement analysis for Standard models immediately. This analysis
// must re-run whenever templates or fields change and whenever templates
// are loaded.
func (r *Registry) Add(m *model.Model) *model.Model {
	if m.ID == 0 {
		m.ID = r.nextID
	}
	if m.ID >= r.nextID {
		r.nextID = m.ID + 1
	}
	r.Models[m.ID] = m
	r.RefreshRequirements(m)
	return m
}

// RefreshRequirements recomputes m.Requirements. A no-op for Cloze models,
// which have no fixed requirement vector (availability is computed
// per-note from cloze references instead, see AvailOrds).
func (r *Registry) RefreshRequirements(m *model.Model) {
	if m.Kind == model.KindCloze {
		m.Requirements = nil
		return
	}
	reqs := make([]model.TemplateRequirement, len(m.Templates))
	for i, t := range m.Templates {
		reqs[i] = r.analyzeTemplate(i, t, m.Fields)
	}
	m.Requirements = reqs
}

func (r *Registry) analyzeTemplate(ord int, t model.CardTemplate, fieldNames []string) model.TemplateRequirement {
	ct := CardTemplate{Name: t.Name, QFmt: t.QFmt}

	allSentinel := fieldsOf(fieldNames, -1, sentinel, sentinel)
	allEmpty := fieldsOf(fieldNames, -1, "", "")
	qSentinel := r.Renderer.RenderQuestion(ct, allSentinel)
	qEmpty := r.Renderer.RenderQuestion(ct, allEmpty)
	if qSentinel == qEmpty {
		return model.TemplateRequirement{Ord: ord, Kind: model.ReqNone}
	}

	var allFields []int
	for i := range fieldNames {
		probe := fieldsOf(fieldNames, i, "", sentinel) // field i emptied, rest sentinel
		q := r.Renderer.RenderQuestion(ct, probe)
		if !strings.Contains(q, sentinel) {
			allFields = append(allFields, i)
		}
	}
	if len(allFields) > 0 {
		return model.TemplateRequirement{Ord: ord, Kind: model.ReqAll, Fields: allFields}
	}

	var anyFields []int
	for i := range fieldNames {
		probe := fieldsOf(fieldNames, i, sentinel, "") // field i populated, rest empty
		q := r.Renderer.RenderQuestion(ct, probe)
		if strings.Contains(q, sentinel) {
			anyFields = append(anyFields, i)
		}
	}
	return model.TemplateRequirement{Ord: ord, Kind: model.ReqAny, Fields: anyFields}
}

// fieldsOf builds a name->value map where field index `special` (if >= 0)
// gets specialVal and every other field gets otherVal.
func fieldsOf(names []string, special int, specialVal, otherVal string) map[string]string {
	out := make(map[string]string, len(names))
	for i, n := range names {
		if i == special {
			out[n] = specialVal
		} else {
			out[n] = otherVal
		}
	}
	return out
}

// AvailOrds returns the set of template ordinals (Standard) or cloze
// numbers (Cloze) that produce a non-empty card for the given field
// values, keyed by field name.
func AvailOrds(m *model.Model, fields map[string]string) []int {
	if m.Kind == model.KindCloze {
		if len(m.Templates) == 0 {
			return nil
		}
		return extractClozeOrdinals(m.Templates[0].QFmt, fields)
	}
	var out []int
	for _, req := range m.Requirements {
		if available(req, m.Fields, fields) {
			out = append(out, req.Ord)
		}
	}
	return out
}

func available(req model.TemplateRequirement, fieldNames []string, fields map[string]string) bool {
	switch req.Kind {
	case model.ReqNone:
		return false
	case model.ReqAll:
		for _, idx := range req.Fields {
			if nonEmpty(fields[fieldNames[idx]]) == false {
				return false
			}
		}
		return len(req.Fields) > 0
	case model.ReqAny:
		for _, idx := range req.Fields {
			if nonEmpty(fields[fieldNames[idx]]) {
				return true
			}
		}
		return len(req.Fields) == 0 // no Any fields recorded: template doesn't gate on fields at all beyond the None/All checks, so treat as always-available
	default:
		return false
	}
}

func nonEmpty(s string) bool { return s != "" }

package notetypes

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Renderer renders a card template's question side against a set of field
// values. Rendering itself is logically separate from requirement
// analysis, which only needs some concrete renderer to probe field
// dependencies against, so this package ships a regex-based template
// engine as the default, pluggable Renderer.
type Renderer interface {
	RenderQuestion(tmpl CardTemplate, fields map[string]string) string
}

// CardTemplate is the subset of model.CardTemplate the renderer needs.
type CardTemplate struct {
	Name string
	QFmt string
	IsCloze bool
}

var fieldTokenRe = regexp.MustCompile(`\{\{([^}]+)\}\}`)
var clozeRe = regexp.MustCompile(`\{\{c(\d+)::(.*?)(?:::([^}]*))?\}\}`)

// DefaultRenderer is a regex substitution engine.
type DefaultRenderer struct{}

func (DefaultRenderer) RenderQuestion(tmpl CardTemplate, fields map[string]string) string {
	if tmpl.IsCloze {
		return renderClozeQuestion(tmpl.QFmt, fields)
	}
	return renderPlain(tmpl.QFmt, fields)
}

func renderPlain(format string, fields map[string]string) string {
	return fieldTokenRe.ReplaceAllStringFunc(format, func(tok string) string {
		name := strings.TrimSuffix(strings.TrimPrefix(tok, "{{"), "}}")
		if idx := strings.Index(name, ":"); idx >= 0 {
			name = name[idx+1:]
		}
		return fields[name]
	})
}

func renderClozeQuestion(format string, fields map[string]string) string {
	out := fieldTokenRe.ReplaceAllStringFunc(format, func(tok string) string {
		name := strings.TrimSuffix(strings.TrimPrefix(tok, "{{"), "}}")
		if strings.HasPrefix(name, "cloze:") {
			name = strings.TrimPrefix(name, "cloze:")
		}
		return fields[name]
	})
	return clozeRe.ReplaceAllString(out, "[...]")
}

// clozeFieldRefs returns the field names a cloze template's qfmt/afmt
// reference via {{cloze:Field}} or <%cloze:Field%>.
var clozeFieldRefTokenRe = regexp.MustCompile(`(?:\{\{cloze:([^}]+)\}\}|<%cloze:([^%]+)%>)`)

func clozeFieldRefs(format string) []string {
	matches := clozeFieldRefTokenRe.FindAllStringSubmatch(format, -1)
	var out []string
	for _, m := range matches {
		if m[1] != "" {
			out = append(out, m[1])
		} else if m[2] != "" {
			out = append(out, m[2])
		}
	}
	return out
}

// extractClozeOrdinals finds every {{cN::...}} ordinal referenced within
// the fields that qfmt's cloze references point at.
func extractClozeOrdinals(qfmt string, fields map[string]string) []int {
	seen := map[int]bool{}
	refs := clozeFieldRefs(qfmt)
	if len(refs) == 0 {
		// no explicit {{cloze:Field}} reference: fall back to scanning every field
		for _, v := range fields {
			collectClozeNums(v, seen)
		}
	} else {
		for _, ref := range refs {
			collectClozeNums(fields[ref], seen)
		}
	}
	if len(seen) == 0 {
		return []int{0}
	}
	out := make([]int, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

func collectClozeNums(value string, seen map[int]bool) {
	for _, m := range clozeRe.FindAllStringSubmatch(value, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		seen[n-1] = true
	}
}

// Package binding turns flat form submissions into the nested payload
// mapping consumed by the event service. Form inputs are addressed by
// dotted paths: "pedido.cliente" binds a scalar field, and
// "pedido.produtos.0.nome" binds the "nome" field of the first line item of
// the ordered "produtos" sequence.
package binding

import (
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Kind is the declared input kind of a form field, which decides coercion.
type Kind string

const (
	KindText     Kind = "text"
	KindNumber   Kind = "number"
	KindDate     Kind = "date"
	KindCheckbox Kind = "checkbox"
	KindRadio    Kind = "radio"
)

// Field is one bound form input.
type Field struct {
	Path    string `json:"path"`
	Kind    Kind   `json:"kind"`
	Value   string `json:"value"`
	Checked bool   `json:"checked"`
}

var (
	ErrNoSchema     = errors.New("no schema could be identified from the bound fields")
	ErrEmptyPayload = errors.New("bound fields produced an empty payload")
)

// Normalizer builds payloads from bound fields.
type Normalizer struct {
	// DateField is stamped with the current time when the form did not
	// supply it.
	DateField string
	Now       func() time.Time
}

func New(dateField string) *Normalizer {
	return &Normalizer{
		DateField: dateField,
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

// Normalize derives the schema from the first bound path and folds every
// field of that schema into a payload mapping. Fields bound to a different
// schema are ignored, unchecked radio inputs contribute nothing, and line
// items that end up with no fields are compacted away.
func (n *Normalizer) Normalize(fields []Field) (string, map[string]any, error) {
	schema := ""
	for _, f := range fields {
		head, _, _ := strings.Cut(f.Path, ".")
		head = strings.TrimSpace(head)
		if head != "" {
			schema = head
			break
		}
	}
	if schema == "" {
		return "", nil, ErrNoSchema
	}

	payload := make(map[string]any)
	items := make(map[string]map[int]map[string]any)

	for _, f := range fields {
		parts := strings.Split(f.Path, ".")
		if parts[0] != schema {
			continue
		}

		switch len(parts) {
		case 2:
			field := strings.TrimSpace(parts[1])
			if field == "" {
				continue
			}
			value, ok := coerce(f)
			if !ok {
				continue
			}
			payload[field] = value
		case 4:
			seq := strings.TrimSpace(parts[1])
			index, err := strconv.Atoi(parts[2])
			field := strings.TrimSpace(parts[3])
			if seq == "" || field == "" || err != nil || index < 0 {
				continue
			}
			value, ok := coerce(f)
			if !ok {
				continue
			}
			if items[seq] == nil {
				items[seq] = make(map[int]map[string]any)
			}
			if items[seq][index] == nil {
				items[seq][index] = make(map[string]any)
			}
			items[seq][index][field] = value
		}
	}

	for seq, byIndex := range items {
		payload[seq] = compact(byIndex)
	}

	if len(payload) == 0 {
		return "", nil, ErrEmptyPayload
	}

	if n.DateField != "" {
		if _, ok := payload[n.DateField]; !ok {
			payload[n.DateField] = n.Now().Format(time.RFC3339)
		}
	}

	return schema, payload, nil
}

func coerce(f Field) (any, bool) {
	switch f.Kind {
	case KindCheckbox:
		return f.Checked, true
	case KindRadio:
		if !f.Checked {
			return nil, false
		}
		return f.Value, true
	case KindNumber:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(f.Value), 64)
		if err != nil {
			return float64(0), true
		}
		return parsed, true
	default:
		return f.Value, true
	}
}

// compact drops empty entries and preserves index order.
func compact(byIndex map[int]map[string]any) []map[string]any {
	indices := make([]int, 0, len(byIndex))
	for i := range byIndex {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	out := make([]map[string]any, 0, len(indices))
	for _, i := range indices {
		if len(byIndex[i]) == 0 {
			continue
		}
		out = append(out, byIndex[i])
	}
	return out
}

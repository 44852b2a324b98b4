package query

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Filter specification keys. Unknown keys are ignored so older engines keep
// working when callers send filters they do not understand yet.
const (
	KeyIncludeGroups  = "include_groups"
	KeyIncludeLabels  = "include_labels"
	KeyDateRange      = "date_range"
	KeyDateExpression = "date_expression"
)

// Spec is a filter specification: a mapping from filter key to a
// filter-specific value. Values may be typed Go values or the shapes produced
// by decoding JSON (the builders coerce both).
type Spec map[string]any

// LabelStore resolves flow-label ids to label names. Ids with no matching
// label are omitted from the result, not reported as errors.
type LabelStore interface {
	LabelNames(ids []int64) ([]string, error)
}

// Evaluator resolves a date expression (relative-date macros such as
// "today - 7 days") to a literal date string. Failures bubble as an
// unparsable string rather than an error.
type Evaluator interface {
	Evaluate(expression string) string
}

// Builder composes search queries using the injected collaborators. It is
// stateless across invocations and safe for concurrent use.
type Builder struct {
	labels LabelStore
	eval   Evaluator
}

func NewBuilder(labels LabelStore, eval Evaluator) *Builder {
	return &Builder{labels: labels, eval: eval}
}

type builderFunc func(b *Builder, q Query, value any) (Query, error)

// filterBuilders maps filter keys to their predicate builders. Builders only
// add AND-ed conditions or joins, so the order of application across distinct
// keys never changes the final result; new filter types must preserve that.
var filterBuilders = map[string]builderFunc{
	KeyIncludeGroups: func(b *Builder, q Query, v any) (Query, error) {
		return b.AddGroupFilter(q, v)
	},
	KeyIncludeLabels: func(b *Builder, q Query, v any) (Query, error) {
		return b.AddLabelFilter(q, v)
	},
	KeyDateRange: func(b *Builder, q Query, v any) (Query, error) {
		return AddDateRange(q, coerceDateRange(v)), nil
	},
	KeyDateExpression: func(b *Builder, q Query, v any) (Query, error) {
		return b.AddDateExpression(q, v), nil
	},
}

// ApplyFilters dispatches every recognized key of the specification to its
// builder. A nil specification is the identity. Keys are visited in sorted
// order only to keep the rendered SQL deterministic; the result does not
// depend on it.
func (b *Builder) ApplyFilters(q Query, spec Spec) (Query, error) {
	if spec == nil {
		return q, nil
	}
	keys := make([]string, 0, len(spec))
	for k := range spec {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var err error
	for _, k := range keys {
		build, ok := filterBuilders[k]
		if !ok {
			continue
		}
		q, err = build(b, q, spec[k])
		if err != nil {
			return Query{}, err
		}
	}
	return q, nil
}

// AddGroupFilter joins the contact's group memberships and constrains them to
// the given set. A contact in any of the listed groups matches; a contact
// with no membership rows is excluded by the join. An empty set is the
// identity. Any id that does not parse as an integer fails the whole
// invocation with ErrInvalidIdentifier.
func (b *Builder) AddGroupFilter(q Query, ids any) (Query, error) {
	groupIDs, err := coerceIDs(ids)
	if err != nil {
		return Query{}, err
	}
	if len(groupIDs) == 0 {
		return q, nil
	}

	q = q.Join(AliasContactGroups, "JOIN contact_groups cg ON cg.contact_id = m.contact_id")
	placeholders := make([]string, len(groupIDs))
	args := make([]any, len(groupIDs))
	for i, id := range groupIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	return q.Where("cg.group_id IN ("+strings.Join(placeholders, ", ")+")", args...), nil
}

// AddLabelFilter resolves the label ids to names and ANDs one substring
// predicate per resolved name against the message's label column. Multiple
// labels narrow the result set (a message must carry all of them), which is
// deliberately the opposite of the group filter's membership OR. Substring
// matching accommodates compound label values ("Help, Optout").
func (b *Builder) AddLabelFilter(q Query, ids any) (Query, error) {
	labelIDs := coerceIDsLenient(ids)
	if len(labelIDs) == 0 {
		return q, nil
	}
	if b.labels == nil {
		return q, nil
	}

	names, err := b.labels.LabelNames(labelIDs)
	if err != nil {
		return Query{}, fmt.Errorf("resolving label names: %w", err)
	}
	for _, name := range names {
		pattern := "%" + escapeLike(strings.ToLower(name)) + "%"
		q = q.Where(`LOWER(m.flow_label) LIKE ? ESCAPE '\'`, pattern)
	}
	return q, nil
}

// coerceIDs converts the supported filter value shapes to int64 ids. String
// ids must parse as integers; anything else is an ErrInvalidIdentifier.
func coerceIDs(v any) ([]int64, error) {
	if v == nil {
		return nil, nil
	}
	var ids []int64
	appendOne := func(item any) error {
		switch n := item.(type) {
		case int64:
			ids = append(ids, n)
		case int:
			ids = append(ids, int64(n))
		case float64:
			ids = append(ids, int64(n))
		case json.Number:
			parsed, err := n.Int64()
			if err != nil {
				return fmt.Errorf("%w: %q", ErrInvalidIdentifier, n.String())
			}
			ids = append(ids, parsed)
		case string:
			parsed, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
			if err != nil {
				return fmt.Errorf("%w: %q", ErrInvalidIdentifier, n)
			}
			ids = append(ids, parsed)
		default:
			return fmt.Errorf("%w: %v", ErrInvalidIdentifier, item)
		}
		return nil
	}

	switch list := v.(type) {
	case []int64:
		return append(ids, list...), nil
	case []int:
		for _, n := range list {
			ids = append(ids, int64(n))
		}
		return ids, nil
	case []string:
		for _, s := range list {
			if err := appendOne(s); err != nil {
				return nil, err
			}
		}
		return ids, nil
	case []any:
		for _, item := range list {
			if err := appendOne(item); err != nil {
				return nil, err
			}
		}
		return ids, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrInvalidIdentifier, v)
	}
}

// coerceIDsLenient is coerceIDs with the error policy of the label filter:
// entries that do not parse are skipped instead of failing the search.
func coerceIDsLenient(v any) []int64 {
	ids, err := coerceIDs(v)
	if err == nil {
		return ids
	}
	var items []any
	switch list := v.(type) {
	case []any:
		items = list
	case []string:
		for _, s := range list {
			items = append(items, s)
		}
	default:
		return nil
	}
	var out []int64
	for _, item := range items {
		if parsed, perr := coerceIDs([]any{item}); perr == nil {
			out = append(out, parsed...)
		}
	}
	return out
}

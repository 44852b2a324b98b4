package query

import "strings"

// Relation aliases used by the builders. Joined relations are addressed
// through these aliases so later stages can target the right relation
// without relying on positional naming.
const (
	AliasMessages      = "m"
	AliasContacts      = "c"
	AliasContactGroups = "cg"
)

// Query accumulates the predicates and joins of a message search. It is a
// value: every builder returns a new, augmented Query and never mutates the
// receiver's backing storage, so a Query can be threaded through the pipeline
// (or reused as a base for several searches) without coordination.
type Query struct {
	table string
	joins []join
	conds []string
	args  []any
}

type join struct {
	alias  string
	clause string
}

// NewMessageQuery returns an empty query over the messages relation.
func NewMessageQuery() Query {
	return Query{table: "messages " + AliasMessages}
}

// clone deep-copies the slices so appends on the copy never leak into the
// original through shared capacity.
func (q Query) clone() Query {
	c := q
	c.joins = append([]join(nil), q.joins...)
	c.conds = append([]string(nil), q.conds...)
	c.args = append([]any(nil), q.args...)
	return c
}

// Where returns a copy of q with an AND-ed condition and its bind args.
func (q Query) Where(cond string, args ...any) Query {
	c := q.clone()
	c.conds = append(c.conds, cond)
	c.args = append(c.args, args...)
	return c
}

// Join returns a copy of q with the given join clause attached. Joins are
// keyed by alias: joining an alias that is already present is a no-op, which
// lets independent builders require the same relation without duplicating it.
func (q Query) Join(alias, clause string) Query {
	if q.Joined(alias) {
		return q
	}
	c := q.clone()
	c.joins = append(c.joins, join{alias: alias, clause: clause})
	return c
}

// Joined reports whether a relation with the given alias is already joined.
func (q Query) Joined(alias string) bool {
	for _, j := range q.joins {
		if j.alias == alias {
			return true
		}
	}
	return false
}

// SQL renders the query as a SELECT over the given columns. DISTINCT guards
// against row multiplication from membership joins (a contact in several of
// the requested groups must not duplicate its messages).
func (q Query) SQL(columns string) string {
	var sb strings.Builder
	sb.WriteString("SELECT DISTINCT ")
	sb.WriteString(columns)
	sb.WriteString("\nFROM ")
	sb.WriteString(q.table)
	for _, j := range q.joins {
		sb.WriteString("\n")
		sb.WriteString(j.clause)
	}
	sb.WriteString("\nWHERE ")
	if len(q.conds) == 0 {
		sb.WriteString("1=1")
	} else {
		sb.WriteString(strings.Join(q.conds, " AND "))
	}
	return sb.String()
}

// Args returns the bind arguments in the order the conditions were added.
func (q Query) Args() []any {
	return append([]any(nil), q.args...)
}

// escapeLike escapes LIKE wildcards in user-provided terms. The predicates
// built here always pass ESCAPE '\' alongside.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	return strings.ReplaceAll(s, "_", `\_`)
}

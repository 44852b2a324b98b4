package query

import (
	"strings"
	"time"
)

// DateFormat is the calendar-date layout accepted by the date filters and
// produced by date-expression evaluation.
const DateFormat = "2006-01-02"

// DateRange bounds a search by insertion time. A nil bound means "no bound";
// with both bounds nil the filter is the identity.
type DateRange struct {
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`
}

// DateExpression carries templated date bounds resolved at query-build time.
type DateExpression struct {
	From string `json:"from_expression,omitempty"`
	To   string `json:"to_expression,omitempty"`
}

// AddDateRange constrains the query to the given range. The upper bound is
// extended to the end of its calendar day: "up to Tuesday" includes all of
// Tuesday, not just its midnight.
func AddDateRange(q Query, r DateRange) Query {
	if r.From != nil {
		q = q.Where("m.inserted_at >= ?", r.From.Format(time.RFC3339))
	}
	if r.To != nil {
		q = q.Where("m.inserted_at <= ?", EndOfDay(*r.To).Format(time.RFC3339))
	}
	return q
}

// AddDateExpression evaluates the from/to expressions through the injected
// evaluator and delegates to AddDateRange. An absent or unresolvable
// expression yields an absent bound; a bad date expression narrows the search
// to "no constraint" instead of aborting it.
func (b *Builder) AddDateExpression(q Query, v any) Query {
	expr := coerceDateExpression(v)
	return AddDateRange(q, DateRange{
		From: b.resolveExpression(expr.From),
		To:   b.resolveExpression(expr.To),
	})
}

func (b *Builder) resolveExpression(expression string) *time.Time {
	if expression == "" || b.eval == nil {
		return nil
	}
	return parseDate(b.eval.Evaluate(expression))
}

// EndOfDay returns the last instant of t's calendar day.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999999999, t.Location())
}

// parseDate parses a calendar date, returning nil on failure per the
// unresolved-date policy.
func parseDate(s string) *time.Time {
	t, err := time.Parse(DateFormat, strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &t
}

// coerceDateRange accepts a DateRange value, a pointer to one, or the
// JSON-decoded map shape with "from"/"to" date strings. Unparsable dates
// degrade to absent bounds.
func coerceDateRange(v any) DateRange {
	switch r := v.(type) {
	case DateRange:
		return r
	case *DateRange:
		if r != nil {
			return *r
		}
	case map[string]any:
		var out DateRange
		if s, ok := r["from"].(string); ok {
			out.From = parseDate(s)
		}
		if s, ok := r["to"].(string); ok {
			out.To = parseDate(s)
		}
		return out
	}
	return DateRange{}
}

func coerceDateExpression(v any) DateExpression {
	switch e := v.(type) {
	case DateExpression:
		return e
	case *DateExpression:
		if e != nil {
			return *e
		}
	case map[string]any:
		var out DateExpression
		if s, ok := e["from_expression"].(string); ok {
			out.From = s
		}
		if s, ok := e["to_expression"].(string); ok {
			out.To = s
		}
		return out
	}
	return DateExpression{}
}

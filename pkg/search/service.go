package search

import (
	"strconv"

	"github.com/rubiojr/convos/pkg/query"
)

// Args carries the optional parameters of a search invocation.
type Args struct {
	// Filter is the filter specification. Nil means no filters.
	Filter query.Spec

	// Limit is the maximum number of results per page. Defaults to 30.
	Limit int

	// Offset is the number of results to skip. Defaults to 0.
	Offset int
}

// Service composes search queries from raw user input. It owns no state
// beyond the injected collaborators and may be shared across goroutines.
type Service struct {
	builder *query.Builder
}

// NewService creates a search service. The label store resolves flow-label
// ids to names; the evaluator resolves relative date expressions. Either may
// be nil, in which case the corresponding filters degrade to no-ops.
func NewService(labels query.LabelStore, eval query.Evaluator) *Service {
	return &Service{builder: query.NewBuilder(labels, eval)}
}

// Search transforms the base query into one expressing the full search:
// normalized free-text matching plus the conjunctive filters of the
// specification. Only a malformed group id fails the invocation; every other
// imprecise input degrades to "no constraint added".
func (s *Service) Search(base query.Query, rawTerm string, args Args) (query.Query, error) {
	q := query.AddTextPredicate(base, query.Normalize(rawTerm))
	return s.builder.ApplyFilters(q, args.Filter)
}

// ParseParams parses HTTP query parameters into a raw term and search Args.
//
// Supported parameters:
//   - q: search term
//   - group: group id filter (repeatable)
//   - label: flow-label id filter (repeatable)
//   - start_date, end_date: absolute date bounds in YYYY-MM-DD format
//   - from_expression, to_expression: relative date expressions
//   - limit, offset: pagination (positive integers)
//
// Malformed dates and expressions are carried through as-is; the query
// builders turn anything unparsable into an absent bound. Malformed group
// ids surface later as query.ErrInvalidIdentifier when the filters run.
func ParseParams(queryParams map[string][]string) (string, Args) {
	args := Args{Limit: 30}
	spec := query.Spec{}

	var term string
	if q := queryParams["q"]; len(q) > 0 {
		term = q[0]
	}

	if groups := queryParams["group"]; len(groups) > 0 {
		spec[query.KeyIncludeGroups] = groups
	}

	if labels := queryParams["label"]; len(labels) > 0 {
		spec[query.KeyIncludeLabels] = labels
	}

	dateRange := map[string]any{}
	if v := first(queryParams, "start_date"); v != "" {
		dateRange["from"] = v
	}
	if v := first(queryParams, "end_date"); v != "" {
		dateRange["to"] = v
	}
	if len(dateRange) > 0 {
		spec[query.KeyDateRange] = dateRange
	}

	dateExpr := map[string]any{}
	if v := first(queryParams, "from_expression"); v != "" {
		dateExpr["from_expression"] = v
	}
	if v := first(queryParams, "to_expression"); v != "" {
		dateExpr["to_expression"] = v
	}
	if len(dateExpr) > 0 {
		spec[query.KeyDateExpression] = dateExpr
	}

	if len(spec) > 0 {
		args.Filter = spec
	}

	if v := first(queryParams, "limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			args.Limit = parsed
		}
	}
	if v := first(queryParams, "offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			args.Offset = parsed
		}
	}

	return term, args
}

func first(params map[string][]string, key string) string {
	if v := params[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// Package expr resolves relative-date expressions ("today - 7 days",
// "yesterday") into literal calendar dates at query-build time. The evaluator
// is stateless; the clock is a field so tests can pin it.
package expr

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Evaluator turns date expressions into YYYY-MM-DD strings. An expression it
// cannot resolve is returned unchanged: failures bubble as unparsable strings
// and the caller's date policy decides what to do with them.
type Evaluator struct {
	// Now supplies the reference instant for relative macros.
	Now func() time.Time
}

func New() *Evaluator {
	return &Evaluator{Now: time.Now}
}

const dateFormat = "2006-01-02"

// shiftPattern matches "today - 7 days", "today+2 weeks" and friends.
var shiftPattern = regexp.MustCompile(`^today\s*([+-])\s*(\d+)\s*(day|week|month|year)s?$`)

// Evaluate resolves a single expression. Supported inputs:
//
//	today | yesterday | tomorrow
//	today ± N days|weeks|months|years
//	a literal YYYY-MM-DD date (passes through)
//
// Anything else is returned as-is.
func (e *Evaluator) Evaluate(expression string) string {
	now := time.Now()
	if e.Now != nil {
		now = e.Now()
	}

	s := strings.ToLower(strings.TrimSpace(expression))
	switch s {
	case "today":
		return now.Format(dateFormat)
	case "yesterday":
		return now.AddDate(0, 0, -1).Format(dateFormat)
	case "tomorrow":
		return now.AddDate(0, 0, 1).Format(dateFormat)
	}

	if m := shiftPattern.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return expression
		}
		if m[1] == "-" {
			n = -n
		}
		switch m[3] {
		case "day":
			return now.AddDate(0, 0, n).Format(dateFormat)
		case "week":
			return now.AddDate(0, 0, 7*n).Format(dateFormat)
		case "month":
			return now.AddDate(0, n, 0).Format(dateFormat)
		case "year":
			return now.AddDate(n, 0, 0).Format(dateFormat)
		}
	}

	return expression
}

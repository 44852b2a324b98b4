package query

import (
	"testing"
)

// Full pipeline over one spec: term + groups + labels + date range composed
// into a single statement.
func TestComposedQueryEndToEnd(t *testing.T) {
	store := &fakeLabelStore{names: map[int64]string{4: "Optout"}}
	b := NewBuilder(store, nil)

	q := AddTextPredicate(NewMessageQuery(), Normalize("Hello WORLD"))
	q, err := b.ApplyFilters(q, Spec{
		KeyIncludeGroups: []string{"1", "2"},
		KeyIncludeLabels: []string{"4"},
		KeyDateRange: map[string]any{
			"from": "2024-01-01",
			"to":   "2024-01-31",
		},
	})
	if err != nil {
		t.Fatalf("composing: %v", err)
	}

	sql := q.SQL("m.id, m.body")
	want := "SELECT DISTINCT m.id, m.body\n" +
		"FROM messages m\n" +
		"JOIN contacts c ON c.id = m.contact_id\n" +
		"JOIN contact_groups cg ON cg.contact_id = m.contact_id\n" +
		`WHERE (LOWER(m.body) LIKE ? ESCAPE '\' OR LOWER(c.name) LIKE ? ESCAPE '\' OR LOWER(c.phone) LIKE ? ESCAPE '\')` +
		" AND m.inserted_at >= ? AND m.inserted_at <= ?" +
		" AND cg.group_id IN (?, ?)" +
		" AND LOWER(m.flow_label) LIKE ? ESCAPE '\\'"
	if sql != want {
		t.Errorf("SQL mismatch:\ngot:  %q\nwant: %q", sql, want)
	}

	wantArgs := []any{
		"%hello world%", "%hello world%", "%hello world%",
		"2024-01-01T00:00:00Z", "2024-01-31T23:59:59Z",
		int64(1), int64(2),
		"%optout%",
	}
	args := q.Args()
	if len(args) != len(wantArgs) {
		t.Fatalf("args = %v, want %v", args, wantArgs)
	}
	for i := range args {
		if args[i] != wantArgs[i] {
			t.Errorf("args[%d] = %v, want %v", i, args[i], wantArgs[i])
		}
	}
}

package query

import (
	"strings"
	"testing"
)

func TestAddTextPredicateEmptyTermIsIdentity(t *testing.T) {
	base := NewMessageQuery()
	q := AddTextPredicate(base, "")

	if q.SQL("m.id") != base.SQL("m.id") {
		t.Errorf("empty term changed the query: %q", q.SQL("m.id"))
	}
	if len(q.Args()) != 0 {
		t.Errorf("empty term added args: %v", q.Args())
	}
}

func TestAddTextPredicateMatchesBodyNameAndPhone(t *testing.T) {
	q := AddTextPredicate(NewMessageQuery(), "hello")
	sql := q.SQL("m.id")

	for _, col := range []string{"LOWER(m.body)", "LOWER(c.name)", "LOWER(c.phone)"} {
		if !strings.Contains(sql, col) {
			t.Errorf("predicate missing %s: %q", col, sql)
		}
	}
	if !strings.Contains(sql, "JOIN contacts c") {
		t.Errorf("contacts not joined: %q", sql)
	}

	args := q.Args()
	if len(args) != 3 {
		t.Fatalf("expected 3 args, got %v", args)
	}
	for _, a := range args {
		if a != "%hello%" {
			t.Errorf("expected %%hello%% arg, got %v", a)
		}
	}
}

func TestAddTextPredicateEscapesWildcards(t *testing.T) {
	q := AddTextPredicate(NewMessageQuery(), "100%_done")
	args := q.Args()
	if len(args) != 3 {
		t.Fatalf("expected 3 args, got %v", args)
	}
	want := `%100\%\_done%`
	if args[0] != want {
		t.Errorf("args[0] = %v, want %q", args[0], want)
	}
}

func TestAddTextPredicateReusesExistingContactsJoin(t *testing.T) {
	base := NewMessageQuery().Join(AliasContacts, "LEFT JOIN contacts c ON c.id = m.contact_id")
	q := AddTextPredicate(base, "term")

	sql := q.SQL("m.id")
	if got := strings.Count(sql, "JOIN contacts"); got != 1 {
		t.Errorf("expected 1 contacts join, got %d in %q", got, sql)
	}
	if !strings.Contains(sql, "LEFT JOIN contacts") {
		t.Errorf("base join should win: %q", sql)
	}
}

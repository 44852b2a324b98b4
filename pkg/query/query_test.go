package query

import (
	"strings"
	"testing"
)

func TestNewMessageQuerySQL(t *testing.T) {
	q := NewMessageQuery()
	sql := q.SQL("m.id")

	want := "SELECT DISTINCT m.id\nFROM messages m\nWHERE 1=1"
	if sql != want {
		t.Errorf("SQL() = %q, want %q", sql, want)
	}
	if len(q.Args()) != 0 {
		t.Errorf("expected no args, got %v", q.Args())
	}
}

func TestWhereAccumulatesConditionsAndArgs(t *testing.T) {
	q := NewMessageQuery().
		Where("m.body LIKE ?", "%hi%").
		Where("m.contact_id = ?", int64(7))

	sql := q.SQL("m.id")
	if !strings.Contains(sql, "WHERE m.body LIKE ? AND m.contact_id = ?") {
		t.Errorf("conditions not AND-ed: %q", sql)
	}

	args := q.Args()
	if len(args) != 2 || args[0] != "%hi%" || args[1] != int64(7) {
		t.Errorf("unexpected args: %v", args)
	}
}

func TestJoinDeduplicatesByAlias(t *testing.T) {
	q := NewMessageQuery().
		Join(AliasContacts, "JOIN contacts c ON c.id = m.contact_id").
		Join(AliasContacts, "LEFT JOIN contacts c ON c.id = m.contact_id")

	sql := q.SQL("m.id")
	if got := strings.Count(sql, "JOIN contacts"); got != 1 {
		t.Errorf("expected 1 contacts join, got %d in %q", got, sql)
	}
	if !q.Joined(AliasContacts) {
		t.Error("Joined(AliasContacts) = false after join")
	}
	if q.Joined(AliasContactGroups) {
		t.Error("Joined(AliasContactGroups) = true without join")
	}
}

func TestBuildersDoNotMutateBase(t *testing.T) {
	base := NewMessageQuery().Where("m.contact_id = ?", int64(1))
	baseSQL := base.SQL("m.id")

	derived1 := base.Where("m.body LIKE ?", "%a%")
	derived2 := base.Join(AliasContactGroups, "JOIN contact_groups cg ON cg.contact_id = m.contact_id")

	if got := base.SQL("m.id"); got != baseSQL {
		t.Errorf("base query mutated: %q", got)
	}
	if len(base.Args()) != 1 {
		t.Errorf("base args mutated: %v", base.Args())
	}
	if derived1.SQL("m.id") == derived2.SQL("m.id") {
		t.Error("derived queries should differ")
	}
}

// Appending to two copies derived from the same base must not let one copy's
// condition leak into the other through shared slice capacity.
func TestDerivedCopiesAreIndependent(t *testing.T) {
	base := NewMessageQuery().Where("a = ?", 1)

	q1 := base.Where("b = ?", 2)
	q2 := base.Where("c = ?", 3)

	if s := q1.SQL("m.id"); strings.Contains(s, "c = ?") {
		t.Errorf("q2 condition leaked into q1: %q", s)
	}
	if s := q2.SQL("m.id"); strings.Contains(s, "b = ?") {
		t.Errorf("q1 condition leaked into q2: %q", s)
	}
}

func TestEscapeLike(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"50%", `50\%`},
		{"under_score", `under\_score`},
		{`back\slash`, `back\\slash`},
		{`%_\`, `\%\_\\`},
	}
	for _, tt := range tests {
		if got := escapeLike(tt.in); got != tt.want {
			t.Errorf("escapeLike(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

package archive

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/rubiojr/convos/pkg/storage"
)

func newStorage(t *testing.T, name string) *storage.Storage {
	t.Helper()
	st, err := storage.Open(filepath.Join(t.TempDir(), name))
	if err != nil {
		t.Fatalf("opening storage: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Errorf("closing storage: %v", err)
		}
	})
	return st
}

func TestExportImportRoundTrip(t *testing.T) {
	src := newStorage(t, "src.db")

	if err := src.StoreContact(storage.Contact{ID: 1, Name: "Alice", Phone: "+1555"}); err != nil {
		t.Fatalf("storing contact: %v", err)
	}
	if err := src.StoreGroup(storage.Group{ID: 10, Label: "friends"}); err != nil {
		t.Fatalf("storing group: %v", err)
	}
	if err := src.AddContactToGroup(1, 10); err != nil {
		t.Fatalf("adding membership: %v", err)
	}
	if err := src.StoreFlowLabel(storage.FlowLabel{ID: 1, Name: "Help"}); err != nil {
		t.Fatalf("storing flow label: %v", err)
	}
	messages := []storage.Message{
		{ID: "m1", Body: "hello", ContactID: 1, InsertedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
		{ID: "m2", Body: "help please", FlowLabel: "Help", ContactID: 1, InsertedAt: time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)},
	}
	if err := src.StoreMessages(messages); err != nil {
		t.Fatalf("storing messages: %v", err)
	}

	var buf bytes.Buffer
	if err := Export(src, &buf); err != nil {
		t.Fatalf("exporting: %v", err)
	}

	dst := newStorage(t, "dst.db")
	n, err := Import(dst, &buf)
	if err != nil {
		t.Fatalf("importing: %v", err)
	}
	if n != 2 {
		t.Errorf("imported %d messages, want 2", n)
	}

	restored, err := dst.SearchMessages(dst.BaseQuery(), 10, 0)
	if err != nil {
		t.Fatalf("searching: %v", err)
	}
	if len(restored) != 2 {
		t.Fatalf("restored %d messages, want 2", len(restored))
	}
	for _, msg := range restored {
		if msg.ContactName != "Alice" {
			t.Errorf("contact not restored: %+v", msg)
		}
	}

	names, err := dst.LabelNames([]int64{1})
	if err != nil {
		t.Fatalf("LabelNames: %v", err)
	}
	if len(names) != 1 || names[0] != "Help" {
		t.Errorf("labels not restored: %v", names)
	}

	pairs, err := dst.ListMemberships()
	if err != nil {
		t.Fatalf("ListMemberships: %v", err)
	}
	if len(pairs) != 1 || pairs[0] != [2]int64{1, 10} {
		t.Errorf("memberships not restored: %v", pairs)
	}
}

func TestImportEmptyArchive(t *testing.T) {
	src := newStorage(t, "src.db")

	var buf bytes.Buffer
	if err := Export(src, &buf); err != nil {
		t.Fatalf("exporting empty store: %v", err)
	}

	dst := newStorage(t, "dst.db")
	n, err := Import(dst, &buf)
	if err != nil {
		t.Fatalf("importing: %v", err)
	}
	if n != 0 {
		t.Errorf("imported %d messages from empty archive", n)
	}
}

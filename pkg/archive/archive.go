// Package archive exports and imports the message store as a
// zstd-compressed stream of JSON records, one per line. The format is
// self-describing: each line carries a "kind" discriminator so archives stay
// readable when record types are added.
package archive

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/rubiojr/convos/pkg/storage"
)

// record is one line of the archive stream.
type record struct {
	Kind      string             `json:"kind"`
	Message   *storage.Message   `json:"message,omitempty"`
	Contact   *storage.Contact   `json:"contact,omitempty"`
	Group     *storage.Group     `json:"group,omitempty"`
	FlowLabel *storage.FlowLabel `json:"flow_label,omitempty"`
	GroupRef  *groupMembership   `json:"membership,omitempty"`
}

type groupMembership struct {
	ContactID int64 `json:"contact_id"`
	GroupID   int64 `json:"group_id"`
}

const (
	kindMessage    = "message"
	kindContact    = "contact"
	kindGroup      = "group"
	kindFlowLabel  = "flow_label"
	kindMembership = "membership"
)

// Export writes the entire store to w. Contacts, groups, labels and
// memberships precede messages so an import can replay the stream in order.
func Export(s *storage.Storage, w io.Writer) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("creating zstd writer: %w", err)
	}
	enc := json.NewEncoder(zw)

	contacts, groups, labels, memberships, err := dumpRelations(s)
	if err != nil {
		return err
	}
	for i := range contacts {
		if err := enc.Encode(record{Kind: kindContact, Contact: &contacts[i]}); err != nil {
			return fmt.Errorf("encoding contact: %w", err)
		}
	}
	for i := range groups {
		if err := enc.Encode(record{Kind: kindGroup, Group: &groups[i]}); err != nil {
			return fmt.Errorf("encoding group: %w", err)
		}
	}
	for i := range labels {
		if err := enc.Encode(record{Kind: kindFlowLabel, FlowLabel: &labels[i]}); err != nil {
			return fmt.Errorf("encoding flow label: %w", err)
		}
	}
	for i := range memberships {
		if err := enc.Encode(record{Kind: kindMembership, GroupRef: &memberships[i]}); err != nil {
			return fmt.Errorf("encoding membership: %w", err)
		}
	}

	messages, err := s.SearchMessages(s.BaseQuery(), 1<<31-1, 0)
	if err != nil {
		return fmt.Errorf("reading messages: %w", err)
	}
	for i := range messages {
		if err := enc.Encode(record{Kind: kindMessage, Message: &messages[i]}); err != nil {
			return fmt.Errorf("encoding message: %w", err)
		}
	}

	return zw.Close()
}

// Import replays an archive stream into the store. Messages without an id
// are assigned one by the storage layer. Unknown record kinds are skipped so
// newer archives import into older binaries.
func Import(s *storage.Storage, r io.Reader) (int, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return 0, fmt.Errorf("creating zstd reader: %w", err)
	}
	defer zr.Close()

	var imported int
	var batch []storage.Message

	scanner := bufio.NewScanner(zr)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec record
		if err := json.Unmarshal(line, &rec); err != nil {
			return imported, fmt.Errorf("decoding archive record: %w", err)
		}

		switch rec.Kind {
		case kindContact:
			if rec.Contact != nil {
				if err := s.StoreContact(*rec.Contact); err != nil {
					return imported, err
				}
			}
		case kindGroup:
			if rec.Group != nil {
				if err := s.StoreGroup(*rec.Group); err != nil {
					return imported, err
				}
			}
		case kindFlowLabel:
			if rec.FlowLabel != nil {
				if err := s.StoreFlowLabel(*rec.FlowLabel); err != nil {
					return imported, err
				}
			}
		case kindMembership:
			if rec.GroupRef != nil {
				if err := s.AddContactToGroup(rec.GroupRef.ContactID, rec.GroupRef.GroupID); err != nil {
					return imported, err
				}
			}
		case kindMessage:
			if rec.Message != nil {
				batch = append(batch, *rec.Message)
				if len(batch) >= 500 {
					if err := s.StoreMessages(batch); err != nil {
						return imported, err
					}
					imported += len(batch)
					batch = batch[:0]
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return imported, fmt.Errorf("reading archive: %w", err)
	}

	if len(batch) > 0 {
		if err := s.StoreMessages(batch); err != nil {
			return imported, err
		}
		imported += len(batch)
	}

	return imported, nil
}

func dumpRelations(s *storage.Storage) ([]storage.Contact, []storage.Group, []storage.FlowLabel, []groupMembership, error) {
	groups, err := s.ListGroups()
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("reading groups: %w", err)
	}
	labels, err := s.ListFlowLabels()
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("reading flow labels: %w", err)
	}
	contacts, err := s.ListContacts()
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("reading contacts: %w", err)
	}
	pairs, err := s.ListMemberships()
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("reading memberships: %w", err)
	}
	memberships := make([]groupMembership, len(pairs))
	for i, p := range pairs {
		memberships[i] = groupMembership{ContactID: p[0], GroupID: p[1]}
	}
	return contacts, groups, labels, memberships, nil
}

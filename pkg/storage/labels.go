package storage

import (
	"fmt"
	"strings"
)

// StoreFlowLabel inserts or updates a flow label.
func (s *Storage) StoreFlowLabel(label FlowLabel) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO flow_labels (id, name) VALUES (?, ?)
	`, label.ID, label.Name)
	if err != nil {
		return fmt.Errorf("storing flow label %d: %w", label.ID, err)
	}
	return nil
}

// ListFlowLabels returns all flow labels ordered by id.
func (s *Storage) ListFlowLabels() ([]FlowLabel, error) {
	rows, err := s.db.Query("SELECT id, name FROM flow_labels ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying flow labels: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			fmt.Printf("Warning: failed to close rows: %v\n", err)
		}
	}()

	var labels []FlowLabel
	for rows.Next() {
		var l FlowLabel
		if err := rows.Scan(&l.ID, &l.Name); err != nil {
			return nil, fmt.Errorf("scanning flow label row: %w", err)
		}
		labels = append(labels, l)
	}
	return labels, rows.Err()
}

// LabelNames resolves flow-label ids to names. Ids with no matching label are
// omitted. Implements the label-store collaborator of the label filter.
func (s *Storage) LabelNames(ids []int64) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	rows, err := s.db.Query(
		"SELECT name FROM flow_labels WHERE id IN ("+strings.Join(placeholders, ", ")+") ORDER BY id",
		args...)
	if err != nil {
		return nil, fmt.Errorf("querying flow label names: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			fmt.Printf("Warning: failed to close rows: %v\n", err)
		}
	}()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning flow label name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

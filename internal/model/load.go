package model

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var (
	ErrNoEvents        = errors.New("events document has no 'events' key")
	ErrEventsNotList   = errors.New("'events' must be a list")
	ErrNotMapping      = errors.New("events document must be a mapping")
	ErrRecordNotMapped = errors.New("event entry must be a mapping")
)

// RecordError ties a data error to the offending entry of the events list.
type RecordError struct {
	Index int // zero-based position in the events list
	Title string
	Err   error
}

func (e *RecordError) Error() string {
	if e.Title == "" {
		return fmt.Sprintf("event #%d: %v", e.Index+1, e.Err)
	}
	return fmt.Sprintf("event #%d (%s): %v", e.Index+1, e.Title, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// LoadEvents reads and decodes the events document at path.
func LoadEvents(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	records, err := DecodeEvents(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// DecodeEvents decodes the top-level `events` list. The key must be present
// and hold a sequence; each entry must be a mapping.
func DecodeEvents(data []byte) ([]Record, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse events: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, ErrNoEvents
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, ErrNotMapping
	}

	list := lookup(root, "events")
	if list == nil {
		return nil, ErrNoEvents
	}
	if list.Kind == yaml.AliasNode {
		list = list.Alias
	}
	if list.Kind != yaml.SequenceNode {
		return nil, ErrEventsNotList
	}

	records := make([]Record, 0, len(list.Content))
	for i, item := range list.Content {
		if item.Kind == yaml.AliasNode {
			item = item.Alias
		}
		if item.Kind != yaml.MappingNode {
			return nil, &RecordError{Index: i, Err: ErrRecordNotMapped}
		}
		var r Record
		if err := item.Decode(&r); err != nil {
			return nil, &RecordError{Index: i, Title: titleOf(item), Err: err}
		}
		if days := lookup(item, "days"); days != nil {
			if days.Kind == yaml.AliasNode {
				days = days.Alias
			}
			r.DaysDeclared = days.Kind == yaml.SequenceNode && len(days.Content) > 0
		}
		r.normalize()
		records = append(records, r)
	}
	return records, nil
}

func lookup(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func titleOf(m *yaml.Node) string {
	if n := lookup(m, "title"); n != nil && n.Kind == yaml.ScalarNode {
		return n.Value
	}
	return ""
}

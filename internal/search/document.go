package search

import "strings"

// Doc is one searchable document: an opaque ID (the recipe ID) and the
// flattened text the index tokenizes.
type Doc struct {
	ID   string
	Text string
}

// ComposeDoc flattens the given fields into a single document for id.
// Empty fields are dropped; list-valued fields (ingredients) should be
// passed pre-joined or as individual fields.
func ComposeDoc(id string, fields ...string) Doc {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if t := strings.TrimSpace(f); t != "" {
			parts = append(parts, t)
		}
	}
	return Doc{ID: id, Text: strings.Join(parts, "\n")}
}

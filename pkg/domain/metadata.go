package domain

// Metadata is a schema-less key-value bag attached to decisions and audit
// entries. Values are restricted by convention to the JSON-shaped set:
// string, float64, int, bool, nil, []any, and nested map[string]any. It is
// never interpreted by the core; it exists so audit entries can carry a full
// snapshot of whatever triggered them.
type Metadata map[string]any

// Clone returns a shallow copy so stored records do not alias caller maps.
// Nested containers are shared; audit snapshots are built fresh per entry, so
// a deep copy has nothing to protect.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

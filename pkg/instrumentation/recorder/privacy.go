package recorder

import (
	"encoding/json"
	"fmt"

	"mercator-hq/meridian/pkg/instrumentation"
)

// Privacy is the treatment of entries tagged as data.
type Privacy string

const (
	// PrivacyKeep stores data entries unchanged.
	PrivacyKeep Privacy = "keep"
	// PrivacyHash replaces each data value with its SHA-256 hash.
	PrivacyHash Privacy = "hash"
	// PrivacyDrop removes data entries.
	PrivacyDrop Privacy = "drop"
)

// ParsePrivacy parses "keep", "hash" or "drop". The empty string means hash.
func ParsePrivacy(s string) (Privacy, error) {
	switch Privacy(s) {
	case PrivacyKeep, PrivacyHash, PrivacyDrop:
		return Privacy(s), nil
	case "":
		return PrivacyHash, nil
	default:
		return PrivacyHash, fmt.Errorf("unknown privacy policy %q", s)
	}
}

// Sanitizer applies the privacy policy and field truncation to records.
type Sanitizer struct {
	Privacy        Privacy
	MaxFieldLength int
}

// Apply returns a sanitized copy of record. The input is not modified.
func (s *Sanitizer) Apply(record *instrumentation.Record) *instrumentation.Record {
	out := *record
	out.Entries = make([]instrumentation.Entry, 0, len(record.Entries))

	for _, e := range record.Entries {
		hashed := false
		if e.Sensitivity == instrumentation.Sensitive {
			switch s.Privacy {
			case PrivacyDrop:
				continue
			case PrivacyKeep:
			default:
				e.Value = HashValue(e.Value)
				hashed = true
			}
		}
		// Digests are never truncated so they stay comparable.
		if s.MaxFieldLength > 0 && !hashed {
			max := s.MaxFieldLength
			e.Value = e.Value.Map(func(v string) string { return TruncateString(v, max) })
		}
		out.Entries = append(out.Entries, e)
	}

	return &out
}

// HashValue replaces a value with the hash of its JSON encoding. The hash
// covers the kind so Int(1) and String("1") differ. Unavailable markers
// carry no user data and are returned unchanged.
func HashValue(v instrumentation.Value) instrumentation.Value {
	if v.IsUnavailable() {
		return v
	}
	data, err := json.Marshal(v)
	if err != nil {
		return instrumentation.Unavailable("hash: " + err.Error())
	}
	return instrumentation.String(HashPrefix + HashContent(data))
}

package discovery

import (
	"strings"
)

// TXTAttribute is one decoded TXT entry. HasValue is false for a flag
// (a string without '='), which is distinct from an empty value ("key=").
type TXTAttribute struct {
	Value    string
	HasValue bool
}

// TXTRecordMap maps TXT keys to their attributes.
type TXTRecordMap map[string]TXTAttribute

// Value returns the value of key and whether one was set. Flags and missing
// keys both report false.
func (m TXTRecordMap) Value(key string) (string, bool) {
	attr, ok := m[key]
	if !ok || !attr.HasValue {
		return "", false
	}
	return attr.Value, true
}

// Has reports whether key is present, as a flag or with a value.
func (m TXTRecordMap) Has(key string) bool {
	_, ok := m[key]
	return ok
}

// DecodeTXT decodes a TXT record in DNS wire format. Decoding stops at a
// zero length byte or at a length exceeding the remaining data; everything
// decoded up to that point is kept. Later duplicates overwrite earlier ones.
// Invalid UTF-8 is replaced.
func DecodeTXT(data []byte) TXTRecordMap {
	txt := make(TXTRecordMap)

	for pos := 0; pos < len(data); {
		n := int(data[pos])
		pos++
		if n == 0 || n > len(data)-pos {
			break
		}

		s := strings.ToValidUTF8(string(data[pos:pos+n]), "�")
		pos += n

		if key, value, ok := strings.Cut(s, "="); ok {
			txt[key] = TXTAttribute{Value: value, HasValue: true}
		} else {
			txt[s] = TXTAttribute{}
		}
	}

	return txt
}

// EncodeTXT converts the key/value strings reported by the mDNS stack to
// DNS wire format. Empty strings are skipped, longer ones truncated to
// MaxTXTStringLen bytes.
func EncodeTXT(records []string) []byte {
	size := 0
	for _, r := range records {
		size += 1 + min(len(r), MaxTXTStringLen)
	}

	out := make([]byte, 0, size)
	for _, r := range records {
		if r == "" {
			continue
		}
		if len(r) > MaxTXTStringLen {
			r = r[:MaxTXTStringLen]
		}
		out = append(out, byte(len(r)))
		out = append(out, r...)
	}
	return out
}

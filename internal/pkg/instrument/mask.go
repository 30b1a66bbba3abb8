package instrument

import (
	"encoding/json"
	"net/url"
	"strings"
)

const masked = "***"

// MaskSet is a case insensitive set of field names to hide in logs.
type MaskSet map[string]struct{}

// NewMaskSet builds a MaskSet, ignoring blank names.
func NewMaskSet(fields []string) MaskSet {
	set := make(MaskSet, len(fields))
	for _, f := range fields {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != "" {
			set[f] = struct{}{}
		}
	}

	return set
}

// Has reports whether key must be masked.
func (m MaskSet) Has(key string) bool {
	_, ok := m[strings.ToLower(key)]
	return ok
}

// Value walks decoded JSON (maps and slices), hides masked keys and passes
// every string through String.
func (m MaskSet) Value(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, v2 := range val {
			if m.Has(k) {
				out[k] = masked
				continue
			}
			out[k] = m.Value(v2)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(val))
		for k, v2 := range val {
			if m.Has(k) {
				out[k] = masked
				continue
			}
			out[k] = m.String(v2)
		}
		return out
	case string:
		return m.String(val)
	case []any:
		out := make([]any, len(val))
		for i, v2 := range val {
			out[i] = m.Value(v2)
		}
		return out
	default:
		return v
	}
}

// JSON masks a JSON document and re-encodes it. ok is false when payload is
// not a JSON object or array.
func (m MaskSet) JSON(payload []byte) (string, bool) {
	if len(payload) == 0 || (payload[0] != '{' && payload[0] != '[') {
		return "", false
	}

	var doc any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return "", false
	}

	out, err := json.Marshal(m.Value(doc))
	if err != nil {
		return "", false
	}

	return string(out), true
}

// String hides secrets carried inside a plain string value: the query values
// of masked keys in a URL (otpauth://...?secret=, ?access_token=) and data
// URIs, which hold rendered QR codes.
func (m MaskSet) String(s string) string {
	if len(m) == 0 {
		return s
	}
	if strings.HasPrefix(s, "data:") {
		return "<data uri omitted>"
	}
	return m.URL(s)
}

// URL replaces the values of masked query parameters in raw with ***. The
// rest of raw, including parameter order, is kept as is.
func (m MaskSet) URL(raw string) string {
	q := strings.IndexByte(raw, '?')
	if q < 0 || len(m) == 0 {
		return raw
	}

	query, fragment := raw[q+1:], ""
	if h := strings.IndexByte(query, '#'); h >= 0 {
		query, fragment = query[:h], query[h:]
	}

	pairs := strings.Split(query, "&")
	for i, pair := range pairs {
		key, _, found := strings.Cut(pair, "=")
		if !found {
			continue
		}
		if name, err := url.QueryUnescape(key); err == nil && m.Has(name) {
			pairs[i] = key + "=" + masked
		}
	}

	return raw[:q+1] + strings.Join(pairs, "&") + fragment
}

package facetset

import (
	"net/url"
	"strings"
)

// Params is an immutable, ordered multimap of query-string pairs. It is the
// external representation of the current filter state: every Choice carries
// the full Params that clicking the choice would produce. All modifying
// operations return a new Params and leave the receiver untouched.
type Params struct {
	pairs []paramPair
}

type paramPair struct {
	key   string
	value string
}

// NewParams creates Params from key/value pairs, preserving order.
func NewParams(pairs ...[2]string) Params {
	pp := make([]paramPair, len(pairs))
	for i, p := range pairs {
		pp[i] = paramPair{key: p[0], value: p[1]}
	}
	return Params{pairs: pp}
}

// ParseQuery parses a raw query string ("a=1&b=2") preserving pair order.
// Pairs with undecodable keys or values are skipped; parsing never fails.
func ParseQuery(raw string) Params {
	raw = strings.TrimPrefix(raw, "?")
	var pairs []paramPair
	for part := range strings.SplitSeq(raw, "&") {
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			continue
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			continue
		}
		pairs = append(pairs, paramPair{key: key, value: value})
	}
	return Params{pairs: pairs}
}

// Len returns the number of pairs.
func (p Params) Len() int { return len(p.pairs) }

// Has reports whether at least one pair with the given key exists.
func (p Params) Has(key string) bool {
	for _, pp := range p.pairs {
		if pp.key == key {
			return true
		}
	}
	return false
}

// Get returns the first value for key.
func (p Params) Get(key string) (string, bool) {
	for _, pp := range p.pairs {
		if pp.key == key {
			return pp.value, true
		}
	}
	return "", false
}

// GetAll returns all values for key, in order.
func (p Params) GetAll(key string) []string {
	var out []string
	for _, pp := range p.pairs {
		if pp.key == key {
			out = append(out, pp.value)
		}
	}
	return out
}

// With returns a copy with key set to exactly one value.
func (p Params) With(key, value string) Params {
	return p.WithValues(key, value)
}

// WithValues returns a copy with key set to exactly the given values. The
// values take the position of the first existing occurrence of key, or are
// appended at the end if the key was absent.
func (p Params) WithValues(key string, values ...string) Params {
	if len(values) == 0 {
		return p.Without(key)
	}
	insertAt := -1
	out := make([]paramPair, 0, len(p.pairs)+len(values))
	for _, pp := range p.pairs {
		if pp.key == key {
			if insertAt == -1 {
				insertAt = len(out)
			}
			continue
		}
		out = append(out, pp)
	}
	if insertAt == -1 {
		insertAt = len(out)
	}
	added := make([]paramPair, len(values))
	for i, v := range values {
		added[i] = paramPair{key: key, value: v}
	}
	out = append(out[:insertAt], append(added, out[insertAt:]...)...)
	return Params{pairs: out}
}

// Without returns a copy with all pairs for the given keys removed.
func (p Params) Without(keys ...string) Params {
	drop := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		drop[k] = struct{}{}
	}
	out := make([]paramPair, 0, len(p.pairs))
	for _, pp := range p.pairs {
		if _, ok := drop[pp.key]; ok {
			continue
		}
		out = append(out, pp)
	}
	return Params{pairs: out}
}

// Encode renders the pairs as a query string, in order.
func (p Params) Encode() string {
	var b strings.Builder
	for i, pp := range p.pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(pp.key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(pp.value))
	}
	return b.String()
}

// Equal reports whether two Params hold the same pairs in the same order.
func (p Params) Equal(other Params) bool {
	if len(p.pairs) != len(other.pairs) {
		return false
	}
	for i, pp := range p.pairs {
		if other.pairs[i] != pp {
			return false
		}
	}
	return true
}

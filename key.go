package cacheaside

import (
	"fmt"
	"strings"

	"github.com/unkn0wn-root/cacheaside/internal/util"
)

// KeySeparator joins key components in FullKey.
const KeySeparator = ':'

var (
	keyEscaper   = strings.NewReplacer("%", "%25", ":", "%3A")
	keyUnescaper = strings.NewReplacer("%25", "%", "%3A", ":")
)

// Key identifies a cache entry. All four components are always present in
// FullKey, in the order namespace:tenant:resource:hash; an empty tenant
// leaves an empty slot ("ns::Resource:abc").
type Key struct {
	Namespace string
	Tenant    string // optional
	Resource  string
	Hash      string
}

func NewKey(namespace, tenant, resource, hash string) Key {
	return Key{Namespace: namespace, Tenant: tenant, Resource: resource, Hash: hash}
}

// FullKey is the canonical string form. '%' and ':' inside a component are
// percent-escaped, so a component can never introduce a separator.
func (k Key) FullKey() string {
	var b strings.Builder
	b.Grow(len(k.Namespace) + len(k.Tenant) + len(k.Resource) + len(k.Hash) + 3)
	for i, part := range [...]string{k.Namespace, k.Tenant, k.Resource, k.Hash} {
		if i > 0 {
			b.WriteByte(KeySeparator)
		}
		b.WriteString(keyEscaper.Replace(part))
	}
	return b.String()
}

func (k Key) String() string { return k.FullKey() }

// ParseKey reverses FullKey. Only the escapes FullKey emits are accepted
// ("%25", "%3A"), so a string that parses is exactly the FullKey of the
// result.
func ParseKey(full string) (Key, error) {
	parts := strings.Split(full, string(KeySeparator))
	if len(parts) != 4 {
		return Key{}, fmt.Errorf("cacheaside: key %q: want 4 components, got %d", full, len(parts))
	}
	for i, p := range parts {
		if err := checkEscapes(p); err != nil {
			return Key{}, fmt.Errorf("cacheaside: key %q: %w", full, err)
		}
		parts[i] = keyUnescaper.Replace(p)
	}
	return Key{Namespace: parts[0], Tenant: parts[1], Resource: parts[2], Hash: parts[3]}, nil
}

func checkEscapes(s string) error {
	for i := 0; i < len(s); i++ {
		if s[i] != '%' {
			continue
		}
		if i+2 >= len(s) {
			return fmt.Errorf("truncated escape at %d", i)
		}
		switch s[i+1 : i+3] {
		case "25", "3A":
			i += 2
		default:
			return fmt.Errorf("unknown escape %q", s[i:i+3])
		}
	}
	return nil
}

// HashOf derives a short, stable hash component from parts.
func HashOf(parts ...string) string {
	return util.HashParts(parts...)
}

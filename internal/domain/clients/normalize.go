package clients

import (
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/schollz/closestmatch"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var whitespace = regexp.MustCompile(`\s+`)

// NormalizeName produces the lookup key for a raw client name: accents
// removed, upper-cased, trimmed, inner whitespace collapsed.
func NormalizeName(raw string) string {
	t := transform.Chain(norm.NFD, transform.RemoveFunc(func(r rune) bool {
		return unicode.Is(unicode.Mn, r)
	}), norm.NFC)
	s, _, err := transform.String(t, raw)
	if err != nil {
		s = raw
	}
	s = strings.ToUpper(s)
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Resolver maps a raw client name to its canonical name.
type Resolver interface {
	Resolve(raw string) string
}

// Directory indexes every name variant of every registered identity. It is
// safe for concurrent reads once registration is done.
type Directory struct {
	canonical  map[string]string // key of a canonical name -> canonical name
	aliases    map[string]string // key of any variant -> canonical name
	identities map[string]*ClientIdentity

	mu      sync.Mutex
	matcher *closestmatch.ClosestMatch
}

func NewDirectory(identities ...*ClientIdentity) *Directory {
	d := &Directory{
		canonical:  make(map[string]string),
		aliases:    make(map[string]string),
		identities: make(map[string]*ClientIdentity),
	}
	for _, id := range identities {
		d.Register(id)
	}
	return d
}

// Register indexes all name variants of id under its canonical name. The
// first identity to claim a key keeps it.
func (d *Directory) Register(id *ClientIdentity) {
	name := id.CanonicalName()
	if name == "" {
		return
	}
	key := NormalizeName(name)
	if _, ok := d.canonical[key]; !ok {
		d.canonical[key] = name
		d.identities[name] = id
	}
	canonicalName := d.canonical[key]
	for _, v := range id.Variants() {
		vk := NormalizeName(v)
		if _, ok := d.aliases[vk]; !ok {
			d.aliases[vk] = canonicalName
		}
	}

	d.mu.Lock()
	d.matcher = nil
	d.mu.Unlock()
}

// Resolve returns the canonical name for any registered variant. Unknown
// names come back unchanged. Canonical names always resolve to themselves,
// which keeps Resolve idempotent.
func (d *Directory) Resolve(raw string) string {
	key := NormalizeName(raw)
	if name, ok := d.canonical[key]; ok {
		return name
	}
	if name, ok := d.aliases[key]; ok {
		return name
	}
	return raw
}

// Known reports whether raw matches a registered variant.
func (d *Directory) Known(raw string) bool {
	key := NormalizeName(raw)
	_, c := d.canonical[key]
	_, a := d.aliases[key]
	return c || a
}

// Lookup returns the identity registered under a canonical name.
func (d *Directory) Lookup(canonicalName string) (*ClientIdentity, bool) {
	id, ok := d.identities[canonicalName]
	return id, ok
}

// Identities returns every registered identity ordered by canonical name.
func (d *Directory) Identities() []*ClientIdentity {
	names := make([]string, 0, len(d.identities))
	for n := range d.identities {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]*ClientIdentity, 0, len(names))
	for _, n := range names {
		out = append(out, d.identities[n])
	}
	return out
}

// Suggest returns the canonical name whose variant is closest to raw, or ""
// when the directory is empty. It is a hint for operators fixing aliases and
// never changes what Resolve returns.
func (d *Directory) Suggest(raw string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.aliases) == 0 {
		return ""
	}
	if d.matcher == nil {
		keys := make([]string, 0, len(d.aliases))
		for k := range d.aliases {
			keys = append(keys, k)
		}
		d.matcher = closestmatch.New(keys, []int{2, 3})
	}
	best := d.matcher.Closest(NormalizeName(raw))
	if best == "" {
		return ""
	}
	return d.aliases[best]
}

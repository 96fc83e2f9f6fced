package statement

import "github.com/medimagem/faturamento/internal/domain/clients"

// Dedupe keeps one record per canonical client: the one with the largest
// net value. Duplicates come from retried or partially overwritten
// generation runs, so they are discarded rather than summed. Equal net
// values keep the most recently created record.
func Dedupe(records []*Record, resolver clients.Resolver) map[string]*Record {
	out := make(map[string]*Record, len(records))
	for _, r := range records {
		if r == nil {
			continue
		}
		name := resolver.Resolve(r.ClientName)
		cur, ok := out[name]
		if !ok || better(r, cur) {
			out[name] = r
		}
	}
	return out
}

func better(a, b *Record) bool {
	if c := a.NetValue.Cmp(b.NetValue); c != 0 {
		return c > 0
	}
	return a.CreatedAt.After(b.CreatedAt)
}

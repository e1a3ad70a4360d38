package runner

import (
	"strings"
	"sync"

	"github.com/aretw0/pdasim/pkg/domain"
)

// Dedup is a pruner that drops configurations equal, by state, remaining
// input and stack, to one already seen in this run, the root included. A
// configuration retained across generations keeps its ID and is never
// dropped. It bounds epsilon loops that return to an earlier configuration.
//
// Dedup implements domain.PrunerSeeder, so a Dedup installed on a restored
// engine knows the whole history and prunes as if the run never stopped.
type Dedup struct {
	mu   sync.Mutex
	seen map[string]domain.ConfigID
}

// NewDedup returns an empty Dedup. Use one per run.
func NewDedup() *Dedup {
	return &Dedup{seen: make(map[string]domain.ConfigID)}
}

func (d *Dedup) Keep(c domain.ConfigView) bool {
	k := dedupKey(c)
	d.mu.Lock()
	defer d.mu.Unlock()
	if id, ok := d.seen[k]; ok {
		return id == c.ID
	}
	d.seen[k] = c.ID
	return true
}

// Seed registers history in order. Keys seen twice keep the first ID.
func (d *Dedup) Seed(history []domain.ConfigView) {
	for _, c := range history {
		d.Keep(c)
	}
}

func dedupKey(c domain.ConfigView) string {
	var b strings.Builder
	b.WriteString(string(c.State))
	b.WriteByte(0)
	for _, s := range c.RemainingInput {
		b.WriteString(string(s))
		b.WriteByte(1)
	}
	b.WriteByte(0)
	for _, s := range c.Stack {
		b.WriteString(string(s))
		b.WriteByte(1)
	}
	return b.String()
}

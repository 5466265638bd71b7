package templates

import (
	"math/rand"
	"sort"
	"strings"
	"time"

	"postbot/internal/storage"
)

const (
	// selectorWindow is how many recent history entries feed scoring.
	selectorWindow = 20
	// prefixLen is the literal-prefix length used to attribute a history
	// entry to the template that seeded it.
	prefixLen = 20
	// topK bounds the exploration pool: the pick is uniform across the
	// best-scoring templates, not a pure argmax.
	topK = 3
	// neutralScore is assigned to templates with no attributable history.
	neutralScore = 0.5
)

// Selector picks the next template, favoring those whose past posts
// succeeded while still exploring the rest.
type Selector struct {
	rng *rand.Rand
}

func NewSelector() *Selector {
	return &Selector{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// SetRand overrides the random source (tests).
func (s *Selector) SetRand(rng *rand.Rand) {
	if rng != nil {
		s.rng = rng
	}
}

// Select returns the chosen template, or nil when none are available.
// Without history the choice is uniformly random.
func (s *Selector) Select(tpls []Template, history []storage.HistoryEntry) *Template {
	if len(tpls) == 0 {
		return nil
	}
	if len(history) == 0 {
		chosen := tpls[s.rng.Intn(len(tpls))]
		return &chosen
	}

	if len(history) > selectorWindow {
		history = history[len(history)-selectorWindow:]
	}

	type scored struct {
		tpl   Template
		score float64
	}
	ranked := make([]scored, 0, len(tpls))
	for _, tpl := range tpls {
		ranked = append(ranked, scored{tpl: tpl, score: scoreTemplate(tpl, history)})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	k := topK
	if len(ranked) < k {
		k = len(ranked)
	}
	chosen := ranked[s.rng.Intn(k)].tpl
	return &chosen
}

// scoreTemplate averages the per-dispatch success ratio across history
// entries attributed to the template. Attribution is a loose proxy: the
// entry's text must start with the template's first prefixLen characters.
func scoreTemplate(tpl Template, history []storage.HistoryEntry) float64 {
	prefix := templatePrefix(tpl.Content)
	if prefix == "" {
		return neutralScore
	}

	var sum float64
	var matches int
	for _, e := range history {
		if !strings.HasPrefix(e.Text, prefix) {
			continue
		}
		if len(e.Accounts) == 0 {
			continue
		}
		var ok int
		for _, r := range e.Accounts {
			if r.Success {
				ok++
			}
		}
		sum += float64(ok) / float64(len(e.Accounts))
		matches++
	}
	if matches == 0 {
		return neutralScore
	}
	return sum / float64(matches)
}

func templatePrefix(content string) string {
	runes := []rune(content)
	if len(runes) > prefixLen {
		runes = runes[:prefixLen]
	}
	return string(runes)
}

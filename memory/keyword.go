package memory

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"
)

type keywordDoc struct {
	seq      uint64
	id       string
	content  string
	tokens   map[string]struct{}
	metadata map[string]string
}

// KeywordIndex is a naive process-local Index. Score is the cosine of the
// query and document token sets (|A∩B| / sqrt(|A|·|B|)), so identical token
// sets score 1 and disjoint ones 0. Suitable for tests and deployments
// without an embedding model; swap for ChromemIndex for semantic recall.
//
// Concurrency: protected by RWMutex.
type KeywordIndex struct {
	mu   sync.RWMutex
	docs map[string]keywordDoc
	seq  uint64
}

// NewKeywordIndex creates an empty keyword index.
func NewKeywordIndex() *KeywordIndex {
	return &KeywordIndex{docs: make(map[string]keywordDoc)}
}

// Add implements Index. Re-adding an id replaces the document.
func (k *KeywordIndex) Add(_ context.Context, id, text string, metadata map[string]string) error {
	md := make(map[string]string, len(metadata))
	for key, v := range metadata {
		md[key] = v
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	k.seq++
	k.docs[id] = keywordDoc{seq: k.seq, id: id, content: text, tokens: tokenize(text), metadata: md}
	return nil
}

// Query implements Index.
func (k *KeywordIndex) Query(ctx context.Context, query string, limit int, threshold float32) ([]Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []Hit{}, nil
	}
	q := tokenize(query)

	k.mu.RLock()
	type scored struct {
		doc   keywordDoc
		score float32
	}
	candidates := make([]scored, 0, len(k.docs))
	for _, d := range k.docs {
		s := overlap(q, d.tokens)
		if s <= 0 || s < threshold {
			continue
		}
		candidates = append(candidates, scored{doc: d, score: s})
	}
	k.mu.RUnlock()

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].doc.seq < candidates[j].doc.seq
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	hits := make([]Hit, 0, len(candidates))
	for _, c := range candidates {
		md := make(map[string]string, len(c.doc.metadata))
		for key, v := range c.doc.metadata {
			md[key] = v
		}
		hits = append(hits, Hit{ID: c.doc.id, Content: c.doc.content, Score: c.score, Metadata: md})
	}
	return hits, nil
}

// Delete implements Index.
func (k *KeywordIndex) Delete(_ context.Context, ids ...string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, id := range ids {
		delete(k.docs, id)
	}
	return nil
}

// Count implements Index.
func (k *KeywordIndex) Count() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.docs)
}

func tokenize(s string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func overlap(a, b map[string]struct{}) float32 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	shared := 0
	for t := range small {
		if _, ok := large[t]; ok {
			shared++
		}
	}
	return float32(float64(shared) / math.Sqrt(float64(len(a))*float64(len(b))))
}

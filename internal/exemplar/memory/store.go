package memory

import (
	"context"
	"math"
	"sync"

	"github.com/churnsight/backend/internal/exemplar"
)

// Store is an in-process exemplar index. It holds every fingerprint in a map
// and scans linearly on search, which is plenty for the few hundred churned
// customers a single tenant accumulates.
type Store struct {
	mu        sync.RWMutex
	exemplars map[string]exemplar.ChurnExemplar
}

func NewStore() *Store {
	return &Store{
		exemplars: make(map[string]exemplar.ChurnExemplar),
	}
}

func (s *Store) Index(_ context.Context, ex exemplar.ChurnExemplar) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := ex
	stored.Fingerprint = make([]float32, len(ex.Fingerprint))
	copy(stored.Fingerprint, ex.Fingerprint)

	s.exemplars[ex.CustomerID] = stored
	return nil
}

func (s *Store) Search(_ context.Context, fingerprint []float32, k int, minSimilarity float64) ([]exemplar.Match, error) {
	if k <= 0 || isZeroVector(fingerprint) {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]exemplar.Match, 0, len(s.exemplars))
	for _, ex := range s.exemplars {
		sim := cosineSimilarity(fingerprint, ex.Fingerprint)
		if sim < minSimilarity {
			continue
		}
		matches = append(matches, exemplar.Match{ChurnExemplar: ex, Similarity: sim})
	}

	exemplar.SortMatches(matches)
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.exemplars)
}

func isZeroVector(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// cosineSimilarity treats any zero-magnitude vector as orthogonal to
// everything.
func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

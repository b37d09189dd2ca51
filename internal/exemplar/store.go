package exemplar

import (
	"context"
	"errors"
	"sort"
	"time"
)

// ErrStoreUnavailable signals a transport or connectivity failure. The fusion
// engine recovers from it by assessing in degraded mode with an empty match
// list; it is never surfaced as a request failure.
var ErrStoreUnavailable = errors.New("exemplar store unavailable")

// ChurnExemplar is a historical churned customer's behavioral fingerprint
// plus churn metadata. Exemplars are immutable historical facts; indexing the
// same customer twice is last-write-wins.
type ChurnExemplar struct {
	CustomerID       string    `json:"customer_id"`
	CompanyName      string    `json:"company_name"`
	Tier             string    `json:"subscription_tier"`
	MonthlyValue     float64   `json:"monthly_value"`
	ChurnDate        time.Time `json:"churn_date"`
	ChurnReason      string    `json:"churn_reason"`
	DecayPattern     string    `json:"decay_pattern,omitempty"`
	DaysUntilChurned int       `json:"days_until_churned"`
	Fingerprint      []float32 `json:"-"`
}

// Match pairs an exemplar with its cosine similarity to the query fingerprint.
type Match struct {
	ChurnExemplar
	Similarity float64 `json:"similarity_score"`
}

// Store is the nearest-neighbor index over churned-customer fingerprints.
//
// Search returns up to k exemplars with cosine similarity >= minSimilarity,
// ordered by similarity descending, ties broken by more recent churn date. A
// zero-magnitude query fingerprint matches nothing: its similarity to every
// exemplar is defined as 0.
type Store interface {
	Index(ctx context.Context, ex ChurnExemplar) error
	Search(ctx context.Context, fingerprint []float32, k int, minSimilarity float64) ([]Match, error)
}

// SortMatches orders matches by similarity descending, ties broken by more
// recent churn date.
func SortMatches(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].ChurnDate.After(matches[j].ChurnDate)
	})
}

// Package selection implements the choice-selection and vote-resolution
// algorithms that decide what happens at each event transition.
package selection

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/quorumapp/quorum-api/internal/domain/common"
)

// DefaultExplorationK is the default weight of the randomness blended into
// the ranking.
const DefaultExplorationK = 0.2

// maxRating is the top of the rating scale members rate choices on.
const maxRating = 5.0

// neutralWeight is the prior used for candidates nobody has rated, so they
// compete on even footing instead of sinking to the bottom.
const neutralWeight = 0.5

// ErrNoCandidates is returned when selection is attempted over an empty
// candidate set.
var ErrNoCandidates = errors.New("no candidate choices")

// Choice is one selected candidate with its blended score.
type Choice struct {
	ID    string  `json:"id"`
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Selector produces a weights-aware randomized top-N over a candidate set.
//
// Each candidate's weight is the mean of the opted-in users' ratings for it,
// normalized to [0,1]; users who never rated a candidate are excluded from
// that candidate's mean rather than counted as zero. The exploration factor K
// blends uniform noise into the ranking so the same input does not always
// yield the same tentative set: a category's best-rated choice should win
// often, not every single time.
type Selector struct {
	k   float64
	rng *rand.Rand
}

// NewSelector creates a selector with exploration factor k. The random source
// is injectable so tests can assert distributional properties without
// flakiness.
func NewSelector(k float64, rng *rand.Rand) (*Selector, error) {
	if k < 0 || k > 1 {
		return nil, fmt.Errorf("exploration factor must be in [0, 1], got %v", k)
	}
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	return &Selector{k: k, rng: rng}, nil
}

// Select returns the topN candidates ordered by blended score. If fewer than
// topN distinct candidates exist, all of them are returned. Zero opted-in
// users or zero ratings degenerate to a uniform random choice among the
// candidates; that is never an error.
func (s *Selector) Select(candidates common.ChoiceMap, ratings map[string]map[string]int, optedIn []string, topN int) ([]Choice, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}
	if topN <= 0 {
		return nil, fmt.Errorf("topN must be positive, got %d", topN)
	}

	opted := make(map[string]bool, len(optedIn))
	for _, username := range optedIn {
		opted[username] = true
	}

	scored := make([]Choice, 0, len(candidates))
	for choiceID, label := range candidates {
		weight := neutralWeight

		var sum, count float64
		for username, value := range ratings[choiceID] {
			if !opted[username] {
				continue
			}
			sum += float64(value)
			count++
		}
		if count > 0 {
			weight = sum / count / maxRating
		}

		scored = append(scored, Choice{
			ID:    choiceID,
			Label: label,
			Score: (1-s.k)*weight + s.k*s.rng.Float64(),
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ID < scored[j].ID
	})

	if topN > len(scored) {
		topN = len(scored)
	}
	return scored[:topN], nil
}

package selection

import (
	"errors"
	"math/rand"
	"sort"

	"github.com/quorumapp/quorum-api/internal/domain/common"
)

// ErrNoVotingNumbers is returned when a tally is attempted over an empty
// vote matrix.
var ErrNoVotingNumbers = errors.New("no voting numbers to tally")

// Tally aggregates per-choice yes/no votes and determines a winner. Ties are
// broken uniformly at random among the tied set, never by insertion order.
type Tally struct {
	rng *rand.Rand
}

// NewTally creates a tally with an injectable random source
func NewTally(rng *rand.Rand) *Tally {
	return &Tally{rng: rng}
}

// Winner returns the choice id with the highest total of yes (1) votes.
// Choices with no votes at all still participate with a count of zero.
func (t *Tally) Winner(numbers common.VoteMatrix) (string, error) {
	if len(numbers) == 0 {
		return "", ErrNoVotingNumbers
	}

	counts := make(map[string]int, len(numbers))
	best := -1
	for choiceID, votes := range numbers {
		yes := 0
		for _, value := range votes {
			if value == 1 {
				yes++
			}
		}
		counts[choiceID] = yes
		if yes > best {
			best = yes
		}
	}

	var tied []string
	for choiceID, yes := range counts {
		if yes == best {
			tied = append(tied, choiceID)
		}
	}

	// Sort so the random draw is over an order-independent set.
	sort.Strings(tied)

	if len(tied) == 1 {
		return tied[0], nil
	}
	return tied[t.rng.Intn(len(tied))], nil
}

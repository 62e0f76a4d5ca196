package service

import (
	"context"
	"math/rand/v2"

	scoredomain "github.com/smallbiznis/kredible/internal/score/domain"
)

// RandomScorer stands in for the real scoring model and returns a uniform
// value in [0, 100].
type RandomScorer struct{}

func NewRandomScorer() scoredomain.Scorer {
	return RandomScorer{}
}

func (RandomScorer) Score(_ context.Context, _ string) (int, error) {
	return rand.IntN(scoredomain.MaxScore + 1), nil
}

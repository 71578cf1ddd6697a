package sampler

import (
	"testing"

	"github.com/onloopai/onloop/pkg/models"
)

func TestSampleIsDeterministicForFixedSeed(t *testing.T) {
	params := models.GenerationParameters{
		Temperature:   0.8,
		TopP:          0.95,
		TopK:          4,
		RepeatPenalty: 1.1,
	}.Clamp()

	logits := func() []float32 { return []float32{1.0, 2.0, 0.5, 3.0, -1.0} }

	a := NewChain(params, 42).Sample(logits())
	b := NewChain(params, 42).Sample(logits())
	if a != b {
		t.Fatalf("expected same seed to draw same token, got %d vs %d", a, b)
	}
}

func TestTopKOfOneIsGreedy(t *testing.T) {
	params := models.GenerationParameters{
		Temperature:   1.0,
		TopP:          1.0,
		TopK:          1,
		RepeatPenalty: 1.0,
	}
	logits := []float32{0.1, 9.0, 0.2, 0.3}
	got := NewChain(params, 7).Sample(logits)
	if got != 1 {
		t.Fatalf("expected greedy draw of the max logit token, got %d", got)
	}
}

func TestRepetitionPenaltyDisfavorsRecentTokens(t *testing.T) {
	params := models.GenerationParameters{
		Temperature:   1.0,
		TopP:          1.0,
		TopK:          1,
		RepeatPenalty: 1.5,
	}
	chain := NewChain(params, 1)
	chain.RecordToken(1) // token 1 was the highest logit; penalize it

	got := chain.Sample([]float32{0.1, 9.0, 8.9, 0.2})
	if got == 1 {
		t.Fatalf("expected repetition penalty to push selection away from token 1, got %d", got)
	}
}

func TestSeedIsPerGenerationNotShared(t *testing.T) {
	params := models.GenerationParameters{Temperature: 1.0, TopP: 1.0, TopK: 5, RepeatPenalty: 1.0}
	logits := []float32{1, 1, 1, 1, 1}
	c1 := NewChain(params, 1)
	c2 := NewChain(params, 2)
	r1 := c1.Sample(append([]float32(nil), logits...))
	_ = c2.Sample(append([]float32(nil), logits...))
	// Not asserting r1 != r2 (collisions are possible with 5 buckets), just
	// that each chain carries its own independent rng state: a fresh chain
	// with c1's seed draws what c1 drew, whatever c2 drew in between.
	c3 := NewChain(params, 1)
	if r3 := c3.Sample(append([]float32(nil), logits...)); r3 != r1 {
		t.Fatalf("expected a fresh chain with seed 1 to draw %d, got %d", r1, r3)
	}
}

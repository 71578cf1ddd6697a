// Package sampler composes the fixed-order sampling chain the decode loop
// draws the next token from: repetition penalty, top-k, top-p, temperature,
// then a seeded categorical draw.
//
// No example repo in the pack performs token-level logit sampling in Go —
// each talks to a hosted or sidecar LLM API that samples server-side — so
// this package is built directly from the data model's description rather
// than adapted from an observed idiom. It intentionally stays on the
// standard library (math/rand) since nothing in the pack wires a
// logit-sampling dependency for this concern.
package sampler

import (
	"math"
	"math/rand"
	"sort"

	"github.com/onloopai/onloop/pkg/models"
)

// Chain holds the parameters and the per-generation random source used by
// the sampling steps. The seed is drawn when the Chain is constructed, not
// when the engine is constructed, so each generation is independently
// reproducible when callers fix a seed.
type Chain struct {
	params models.GenerationParameters
	rng    *rand.Rand

	// history is the last-N token-id window used by the repetition penalty.
	history []int32
}

// NewChain builds a sampler chain for one generation call. params is
// expected to already be clamped.
func NewChain(params models.GenerationParameters, seed int64) *Chain {
	return &Chain{
		params: params,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// RecordToken appends id to the repetition-penalty history window.
func (c *Chain) RecordToken(id int32) {
	const maxHistory = 64
	c.history = append(c.history, id)
	if len(c.history) > maxHistory {
		c.history = c.history[len(c.history)-maxHistory:]
	}
}

// Sample runs the full chain over logits (indexed by token id) and returns
// the drawn token id. logits is mutated in place.
func (c *Chain) Sample(logits []float32) int32 {
	c.applyRepetitionPenalty(logits)
	probs := softmax(logits)
	probs = c.applyTopK(probs)
	probs = c.applyTopP(probs)
	// Temperature rescales only the tokens top-k/top-p kept; the rest are
	// masked out so they stay at zero probability after the final softmax.
	for i, p := range probs {
		if p == 0 {
			logits[i] = float32(math.Inf(-1))
		}
	}
	c.applyTemperature(logits)
	return c.draw(softmax(logits))
}

// applyRepetitionPenalty divides (or multiplies, for negative logits) the
// logit of any token seen in the recent history by RepeatPenalty, per the
// "last-N, with frequency and presence both zero" rule: only membership in
// the window matters, not how many times or how recently a token recurred.
func (c *Chain) applyRepetitionPenalty(logits []float32) {
	if c.params.RepeatPenalty <= 1.0 || len(c.history) == 0 {
		return
	}
	seen := make(map[int32]struct{}, len(c.history))
	for _, id := range c.history {
		seen[id] = struct{}{}
	}
	penalty := float32(c.params.RepeatPenalty)
	for id := range seen {
		if int(id) < 0 || int(id) >= len(logits) {
			continue
		}
		if logits[id] > 0 {
			logits[id] /= penalty
		} else {
			logits[id] *= penalty
		}
	}
}

func (c *Chain) applyTemperature(logits []float32) {
	temp := float32(c.params.Temperature)
	if temp < 0.01 {
		temp = 0.01
	}
	for i := range logits {
		logits[i] /= temp
	}
}

// applyTopK zeroes the probability of every token outside the K highest.
func (c *Chain) applyTopK(probs []float32) []float32 {
	k := c.params.TopK
	if k < 1 {
		k = 1
	}
	if k >= len(probs) {
		return probs
	}
	idx := make([]int, len(probs))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return probs[idx[a]] > probs[idx[b]] })
	kept := make(map[int]struct{}, k)
	for _, i := range idx[:k] {
		kept[i] = struct{}{}
	}
	out := make([]float32, len(probs))
	for i, p := range probs {
		if _, ok := kept[i]; ok {
			out[i] = p
		}
	}
	return renormalize(out)
}

// applyTopP (nucleus sampling) keeps the smallest prefix of
// highest-probability tokens whose cumulative mass reaches TopP.
func (c *Chain) applyTopP(probs []float32) []float32 {
	topP := c.params.TopP
	if topP <= 0 || topP >= 1 {
		return probs
	}
	idx := make([]int, len(probs))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return probs[idx[a]] > probs[idx[b]] })

	out := make([]float32, len(probs))
	var cum float32
	for _, i := range idx {
		if cum >= float32(topP) {
			break
		}
		out[i] = probs[i]
		cum += probs[i]
	}
	return renormalize(out)
}

// draw performs the seeded categorical draw over probs.
func (c *Chain) draw(probs []float32) int32 {
	r := c.rng.Float32()
	var cum float32
	for i, p := range probs {
		cum += p
		if r <= cum {
			return int32(i)
		}
	}
	// Floating-point slack: fall back to the last nonzero entry.
	for i := len(probs) - 1; i >= 0; i-- {
		if probs[i] > 0 {
			return int32(i)
		}
	}
	return 0
}

func softmax(logits []float32) []float32 {
	max := logits[0]
	for _, v := range logits {
		if v > max {
			max = v
		}
	}
	out := make([]float32, len(logits))
	var sum float32
	for i, v := range logits {
		e := float32(math.Exp(float64(v - max)))
		out[i] = e
		sum += e
	}
	if sum == 0 {
		return out
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func renormalize(probs []float32) []float32 {
	var sum float32
	for _, p := range probs {
		sum += p
	}
	if sum == 0 {
		return probs
	}
	out := make([]float32, len(probs))
	for i, p := range probs {
		out[i] = p / sum
	}
	return out
}

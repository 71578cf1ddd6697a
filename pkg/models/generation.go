package models

// GenerationParameters controls sampling for a single generation call. All
// numeric fields are clamped by Clamp() before use; callers are never
// rejected for out-of-range values, only corrected.
type GenerationParameters struct {
	Temperature    float64
	TopP           float64
	TopK           int
	MaxTokens      int
	RepeatPenalty  float64
	StopSequences  []string
}

// DefaultGenerationParameters returns a reasonable, already-clamped default.
func DefaultGenerationParameters() GenerationParameters {
	return GenerationParameters{
		Temperature:   0.8,
		TopP:          0.95,
		TopK:          40,
		MaxTokens:     512,
		RepeatPenalty: 1.1,
	}
}

// Clamp returns a copy of p with every numeric field clamped into the
// invariant ranges from the data model: temperature in [0.01, 2.0], top_p in
// [0, 1], top_k >= 1, repeat_penalty in [1.0, 2.0].
func (p GenerationParameters) Clamp() GenerationParameters {
	clamped := p
	clamped.Temperature = clampFloat(p.Temperature, 0.01, 2.0)
	clamped.TopP = clampFloat(p.TopP, 0.0, 1.0)
	if clamped.TopK < 1 {
		clamped.TopK = 1
	}
	clamped.RepeatPenalty = clampFloat(p.RepeatPenalty, 1.0, 2.0)
	if clamped.MaxTokens < 1 {
		clamped.MaxTokens = 1
	}
	return clamped
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// MinContextSize is the floor enforced on EngineConfiguration.ContextSize.
const MinContextSize = 512

// EngineConfiguration describes how to load a quantized model file.
type EngineConfiguration struct {
	ModelPath        string
	ContextSize      int
	GPUOffloadLayers int
	Temperature      float64
	TopP             float64
	Seed             int64
}

// NCtx returns the effective context size, floored at MinContextSize.
func (c EngineConfiguration) NCtx() int {
	if c.ContextSize < MinContextSize {
		return MinContextSize
	}
	return c.ContextSize
}

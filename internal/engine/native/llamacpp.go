package native

import (
	"context"
	"fmt"

	llamacpp "github.com/go-skynet/go-llama.cpp"
)

// LlamaCppLoader loads GGUF models through the go-llama.cpp cgo binding.
type LlamaCppLoader struct{}

var _ Loader = LlamaCppLoader{}

// LoadModel opens path with the native loader, offloading gpuOffloadLayers
// layers to the GPU (0 disables GPU offload; a large value requests full
// offload, clamped internally by the native library to the model's layer
// count).
func (LlamaCppLoader) LoadModel(path string, gpuOffloadLayers int) (Model, error) {
	raw, err := llamacpp.New(path,
		llamacpp.EnableF16Memory,
		llamacpp.SetGPULayers(gpuOffloadLayers),
	)
	if err != nil {
		return nil, fmt.Errorf("native loader: %w", err)
	}
	return &llamaModel{raw: raw}, nil
}

type llamaModel struct {
	raw *llamacpp.LLama
}

func (m *llamaModel) NewContext(nCtx, nBatch, threads int, flashAttention bool) (Context, error) {
	// go-llama.cpp derives its context from the options passed at load time
	// rather than a separate allocation step; we keep the Context
	// abstraction so the engine's decode loop never depends on that detail,
	// re-deriving a context-scoped handle here.
	ctx, err := m.raw.NewContext(llamacpp.SetContext(nCtx), llamacpp.SetThreads(threads), llamacpp.SetBatch(nBatch))
	if err != nil {
		return nil, fmt.Errorf("native context: %w", err)
	}
	return &llamaContext{raw: ctx}, nil
}

func (m *llamaModel) Close() {
	m.raw.Free()
}

type llamaContext struct {
	raw     *llamacpp.Context
	logits  []float32
}

func (c *llamaContext) Tokenize(prompt string) ([]int32, error) {
	ids, err := c.raw.TokenizeString(prompt)
	if err != nil {
		return nil, fmt.Errorf("tokenize: %w", err)
	}
	return ids, nil
}

func (c *llamaContext) ClearKVCache() {
	c.raw.ClearKVCache()
}

func (c *llamaContext) Eval(_ context.Context, tokens []int32, pos int, wantLogits bool) error {
	if err := c.raw.Decode(tokens, pos, wantLogits); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if wantLogits {
		c.logits = c.raw.Logits()
	}
	return nil
}

func (c *llamaContext) Logits() []float32 {
	return c.logits
}

// TokenToPiece follows the negative-return-means-buffer-too-small
// convention common to llama.cpp's token_to_piece: a first call with a
// small buffer returns a negative count n when the piece doesn't fit, and
// the caller retries with a buffer of -n+1 bytes.
func (c *llamaContext) TokenToPiece(token int32) ([]byte, error) {
	buf := make([]byte, 8)
	n, err := c.raw.TokenToPiece(token, buf)
	if err != nil {
		return nil, fmt.Errorf("token to piece: %w", err)
	}
	if n < 0 {
		needed := -n + 1
		buf = make([]byte, needed)
		n, err = c.raw.TokenToPiece(token, buf)
		if err != nil {
			return nil, fmt.Errorf("token to piece (retry): %w", err)
		}
	}
	return buf[:n], nil
}

func (c *llamaContext) IsEndOfGeneration(token int32) bool {
	return c.raw.IsEOGToken(token)
}

func (c *llamaContext) Close() {
	c.raw.Free()
}

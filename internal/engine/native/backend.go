// Package native defines the boundary between the engine's token-granular
// decode loop and the native llama.cpp library that actually owns the
// model weights and KV cache. Engine code depends only on the interfaces
// here, never on the concrete GGUF binding, so tests substitute fakes.
package native

import "context"

// Model is a loaded set of quantized weights. It owns no per-conversation
// state; Context does.
type Model interface {
	// NewContext allocates a decode context sized for nCtx tokens.
	NewContext(nCtx, nBatch, threads int, flashAttention bool) (Context, error)

	// Close releases the model handle. Must be called after every Context
	// derived from it has been closed.
	Close()
}

// Context owns the KV cache for one conversation's worth of decoding.
type Context interface {
	// Tokenize converts prompt text to token ids using the model's
	// tokenizer. Returns an empty slice, not an error, for empty input.
	Tokenize(prompt string) ([]int32, error)

	// ClearKVCache discards all cached key/value state, as done at the
	// start of every Generate call.
	ClearKVCache()

	// Eval feeds tokens into the context starting at position pos. When
	// wantLogits is true, Logits() returns the distribution for the last
	// token in the batch after this call returns.
	Eval(ctx context.Context, tokens []int32, pos int, wantLogits bool) error

	// Logits returns the vocabulary-sized distribution produced by the most
	// recent Eval call that requested logits.
	Logits() []float32

	// TokenToPiece converts a single token id to its UTF-8 byte piece. The
	// piece may be a partial code point when the token boundary splits a
	// multi-byte character.
	TokenToPiece(token int32) ([]byte, error)

	// IsEndOfGeneration reports whether token is one of the tokenizer's
	// designated terminal tokens.
	IsEndOfGeneration(token int32) bool

	// Close releases the context handle.
	Close()
}

// Loader loads a Model from a GGUF file on disk.
type Loader interface {
	LoadModel(path string, gpuOffloadLayers int) (Model, error)
}

package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/onloopai/onloop/internal/backend"
	"github.com/onloopai/onloop/internal/engine/native"
	"github.com/onloopai/onloop/internal/prompt"
	"github.com/onloopai/onloop/internal/sampler"
	"github.com/onloopai/onloop/pkg/models"
)

// Engine owns a loaded model and decode context and drives prefill/decode
// for one conversation at a time. The control-flow shape — a goroutine
// producing into a buffered channel, context.Done() polled at the top of
// the loop, defer close(chunks) — is grounded on the teacher's
// AgenticLoop.Run.
type Engine struct {
	cfg      models.EngineConfiguration
	loader   native.Loader
	refcount *backend.Refcount
	logger   *slog.Logger

	mu     sync.Mutex
	model  native.Model
	ctx    native.Context
	loaded bool

	inFlight   atomic.Bool
	cancelFlag atomic.Bool
}

// New constructs an idle Engine. refcount gates the process-wide native
// backend init/free pair and may be shared across multiple engines.
func New(cfg models.EngineConfiguration, loader native.Loader, refcount *backend.Refcount, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{cfg: cfg, loader: loader, refcount: refcount, logger: logger}
}

// Load verifies the model file exists, acquires the process-wide backend,
// loads the model, and creates a decode context. Heavy work runs on a
// background goroutine; Load blocks until it completes or ctx is done.
func (e *Engine) Load(ctx context.Context) error {
	if _, err := os.Stat(e.cfg.ModelPath); err != nil {
		return newError(KindModelNotFound, e.cfg.ModelPath)
	}

	type result struct {
		model native.Model
		ctx   native.Context
		err   error
	}
	done := make(chan result, 1)

	go func() {
		if err := e.refcount.Acquire(); err != nil {
			done <- result{err: wrapError(KindFailedToLoad, err)}
			return
		}

		model, err := e.loader.LoadModel(e.cfg.ModelPath, e.cfg.GPUOffloadLayers)
		if err != nil {
			e.refcount.Release()
			done <- result{err: wrapError(KindFailedToLoad, err)}
			return
		}

		nativeCtx, err := model.NewContext(e.cfg.NCtx(), EvalBatchSize, decodeThreads(), true)
		if err != nil {
			model.Close()
			e.refcount.Release()
			done <- result{err: wrapError(KindContextCreationFailed, err)}
			return
		}

		done <- result{model: model, ctx: nativeCtx}
	}()

	select {
	case <-ctx.Done():
		// The background goroutine is still running and may yet succeed;
		// absorb its result on another goroutine so a load that finishes
		// after we've given up still releases the model, context, and
		// backend refcount instead of leaking them.
		go func() {
			if r := <-done; r.err == nil {
				r.ctx.Close()
				r.model.Close()
				e.refcount.Release()
			}
		}()
		return ctx.Err()
	case r := <-done:
		if r.err != nil {
			return r.err
		}
		e.mu.Lock()
		e.model = r.model
		e.ctx = r.ctx
		e.loaded = true
		e.mu.Unlock()
		return nil
	}
}

// Unload releases the context, then the model, then decrements the
// backend refcount, in reverse-acquire order.
func (e *Engine) Unload() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.loaded {
		return
	}
	if e.ctx != nil {
		e.ctx.Close()
		e.ctx = nil
	}
	if e.model != nil {
		e.model.Close()
		e.model = nil
	}
	e.loaded = false
	e.refcount.Release()
}

// Cancel requests that the in-flight generation, if any, stop at the next
// poll point. It is the stream-termination hook described in §4.4/§5: safe
// to call from the observer on drop, idempotent, and never raises.
func (e *Engine) Cancel() {
	e.cancelFlag.Store(true)
}

const chunkBufferSize = 64

// Generate runs one generation turn over messages and streams TokenEvents.
// Exactly one generation may be in flight on a given engine; a concurrent
// call fails fast with generation_failed("already in progress").
func (e *Engine) Generate(ctx context.Context, messages []models.Message, params models.GenerationParameters) (<-chan models.TokenEvent, error) {
	e.mu.Lock()
	loaded := e.loaded
	nativeCtx := e.ctx
	e.mu.Unlock()
	if !loaded {
		return nil, newError(KindModelNotLoaded, "")
	}

	if !e.inFlight.CompareAndSwap(false, true) {
		return nil, newError(KindGenerationFailed, "already in progress")
	}
	e.cancelFlag.Store(false)

	params = params.Clamp()
	nCtx := e.cfg.NCtx()

	events := make(chan models.TokenEvent, chunkBufferSize)
	go func() {
		defer close(events)
		defer e.inFlight.Store(false)
		e.run(ctx, nativeCtx, messages, params, nCtx, events)
	}()

	return events, nil
}

func (e *Engine) cancelled(ctx context.Context) bool {
	if e.cancelFlag.Load() {
		return true
	}
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

func (e *Engine) run(ctx context.Context, nativeCtx native.Context, messages []models.Message, params models.GenerationParameters, nCtx int, events chan<- models.TokenEvent) {
	nativeCtx.ClearKVCache()

	text := prompt.Format(messages)
	tokens, err := nativeCtx.Tokenize(text)
	if err != nil {
		e.fail(events, "tokenize failed", wrapError(KindGenerationFailed, err))
		return
	}
	if len(tokens) == 0 {
		e.fail(events, "empty prompt token sequence", newError(KindGenerationFailed, "tokenization produced no tokens"))
		return
	}
	if len(tokens) >= nCtx {
		detail := fmt.Sprintf("prompt has %d tokens, n_ctx is %d", len(tokens), nCtx)
		e.fail(events, "prompt exceeds context window", newError(KindGenerationFailed, detail), "token_count", len(tokens), "n_ctx", nCtx)
		return
	}

	if e.cancelled(ctx) {
		events <- models.Done(models.FinishCancelled)
		return
	}
	if err := e.prefill(ctx, nativeCtx, tokens); err != nil {
		if err == errCancelledDuringPrefill {
			events <- models.Done(models.FinishCancelled)
			return
		}
		e.fail(events, "prefill failed", wrapError(KindGenerationFailed, err))
		return
	}

	e.decode(ctx, nativeCtx, tokens, params, events)
}

// fail logs detail and msg at warn level, then emits msg as the
// generation's terminal error event. Every non-cancellation failure path
// in run/decode goes through this so the stream always ends in exactly one
// terminal event, per §8's "exactly one done(_) event" invariant extended
// to its error counterpart.
func (e *Engine) fail(events chan<- models.TokenEvent, logMsg string, err error, logArgs ...any) {
	e.logger.Warn(logMsg, append([]any{"error", err}, logArgs...)...)
	events <- models.TokenError(err)
}

var errCancelledDuringPrefill = fmt.Errorf("cancelled during prefill")

// prefill evaluates tokens in batches of PrefillBatchSize, positions
// [i, i+len). Only the last token of the last batch requests logits.
func (e *Engine) prefill(ctx context.Context, nativeCtx native.Context, tokens []int32) error {
	for i := 0; i < len(tokens); i += PrefillBatchSize {
		if e.cancelled(ctx) {
			return errCancelledDuringPrefill
		}
		end := i + PrefillBatchSize
		if end > len(tokens) {
			end = len(tokens)
		}
		isLastBatch := end == len(tokens)
		if err := nativeCtx.Eval(ctx, tokens[i:end], i, isLastBatch); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) decode(ctx context.Context, nativeCtx native.Context, promptTokens []int32, params models.GenerationParameters, events chan<- models.TokenEvent) {
	chain := sampler.NewChain(params, e.cfg.Seed)
	scanner := &markerScanner{}
	pos := len(promptTokens)
	generated := 0

	for generated < params.MaxTokens {
		if e.cancelled(ctx) {
			events <- models.Done(models.FinishCancelled)
			return
		}

		logits := nativeCtx.Logits()
		if len(logits) == 0 {
			e.fail(events, "decode produced no logits", newError(KindGenerationFailed, "decode produced no logits"))
			return
		}
		token := chain.Sample(append([]float32(nil), logits...))
		chain.RecordToken(token)

		if nativeCtx.IsEndOfGeneration(token) {
			if rest := scanner.Flush(); rest != "" {
				events <- models.Token(rest)
			}
			reason := models.FinishStop
			if scanner.Buffering() {
				if call, ok := parseToolCall(scanner.PendingPayload()); ok {
					events <- models.ToolCallEvent(call)
					reason = models.FinishToolUse
				}
			}
			events <- models.Done(reason)
			return
		}

		piece, err := nativeCtx.TokenToPiece(token)
		if err != nil {
			e.fail(events, "token to piece failed", wrapError(KindGenerationFailed, err))
			return
		}

		for _, se := range scanner.Feed(string(piece)) {
			if se.isToolCall {
				if call, ok := parseToolCall(se.toolPayload); ok {
					events <- models.ToolCallEvent(call)
				}
				continue
			}
			if se.text != "" {
				events <- models.Token(se.text)
			}
		}

		if err := nativeCtx.Eval(ctx, []int32{token}, pos, true); err != nil {
			e.fail(events, "decode step failed", wrapError(KindGenerationFailed, err))
			return
		}
		pos++
		generated++
	}

	if rest := scanner.Flush(); rest != "" {
		events <- models.Token(rest)
	}
	events <- models.Done(models.FinishLength)
}

// Command onloop is a demo harness around the inference-and-agent core: a
// thin CLI that lists the default tool catalog, checks that a GGUF model
// loads, or registers a couple of illustrative tools and drives the full
// ReAct-looped agent coordinator from a terminal. It is not part of the core's public
// surface — real hosts embed the internal/engine, internal/agent, and
// internal/tools packages directly.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/onloopai/onloop/internal/agent"
	"github.com/onloopai/onloop/internal/backend"
	"github.com/onloopai/onloop/internal/engine"
	"github.com/onloopai/onloop/internal/engine/native"
	"github.com/onloopai/onloop/internal/tools"
	"github.com/onloopai/onloop/pkg/models"
)

var (
	flagModelPath  string
	flagConfigPath string
	flagContextSz  int
	flagGPULayers  int
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "onloop",
		Short: "Demo CLI for the on-device inference-and-agent runtime",
	}
	root.PersistentFlags().StringVar(&flagModelPath, "model", "", "path to a GGUF model file")
	root.PersistentFlags().StringVar(&flagConfigPath, "config", "", "optional YAML config file supplying defaults")
	root.PersistentFlags().IntVar(&flagContextSz, "ctx", 0, "context size in tokens (floored at 512)")
	root.PersistentFlags().IntVar(&flagGPULayers, "gpu-layers", 0, "number of layers to offload to the GPU")

	root.AddCommand(newLoadCmd(), newChatCmd(), newToolsCmd())
	return root
}

// newNativeRefcount builds the backend refcount shared by engines in this
// process. go-llama.cpp exposes no separate process-wide init/free pair of
// its own — LLama.New/Free each own their full lifecycle — so the hooks
// here are no-ops and the refcount only counts Load/Unload pairs; it does
// not serialize the native load or unload calls themselves.
func newNativeRefcount(logger *slog.Logger) *backend.Refcount {
	return backend.NewRefcount(func() error { return nil }, func() {}, logger)
}

func buildEngineConfig() (models.EngineConfiguration, error) {
	fc, err := loadFileConfig(flagConfigPath)
	if err != nil {
		return models.EngineConfiguration{}, err
	}
	cfg := fc.toEngineConfiguration(flagModelPath, flagContextSz, flagGPULayers)
	if cfg.ModelPath == "" {
		return cfg, fmt.Errorf("a model path is required: pass --model or set model_path in --config")
	}
	return cfg, nil
}

func newLoadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load",
		Short: "Load a model and report success or the failure reason",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildEngineConfig()
			if err != nil {
				return err
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
			eng := engine.New(cfg, native.LlamaCppLoader{}, newNativeRefcount(logger), logger)
			if err := eng.Load(cmd.Context()); err != nil {
				return err
			}
			defer eng.Unload()
			fmt.Printf("loaded %s (n_ctx=%d)\n", cfg.ModelPath, cfg.NCtx())
			return nil
		},
	}
}

func newToolsCmd() *cobra.Command {
	root := &cobra.Command{Use: "tools", Short: "Inspect the tool catalog"}
	root.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the default tool catalog specs",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, spec := range tools.DefaultCatalog() {
				fmt.Printf("%-12s %s\n", spec.Name, spec.Description)
			}
			return nil
		},
	})
	return root
}

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session against a loaded model",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildEngineConfig()
			if err != nil {
				return err
			}
			return runChat(cmd.Context(), cfg)
		},
	}
}

// chatGenerationParameters builds the sampling parameters the chat command
// passes to every Process call. A zero cfg.Temperature/cfg.TopP means the
// user left that field unset in --config, so the built-in default wins.
func chatGenerationParameters(cfg models.EngineConfiguration) models.GenerationParameters {
	params := models.DefaultGenerationParameters()
	if cfg.Temperature != 0 {
		params.Temperature = cfg.Temperature
	}
	if cfg.TopP != 0 {
		params.TopP = cfg.TopP
	}
	return params.Clamp()
}

func runChat(ctx context.Context, cfg models.EngineConfiguration) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	eng := engine.New(cfg, native.LlamaCppLoader{}, newNativeRefcount(logger), logger)
	if err := eng.Load(ctx); err != nil {
		return err
	}
	defer eng.Unload()

	registry := tools.NewRegistry(logger)
	registerDemoTools(registry)

	coordinator := agent.NewCoordinator(eng, registry, agent.DefaultIdentity, logger)
	genParams := chatGenerationParameters(cfg)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println("onloop chat — type a message, Ctrl-C to exit")
	scanner := bufio.NewScanner(os.Stdin)
	var conversation []models.Message

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		conversation = append(conversation, models.NewMessage(models.RoleUser, line))

		events, err := coordinator.Process(ctx, conversation, genParams)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}

		var assistantText string
		for ev := range events {
			switch ev.Kind {
			case models.AgentEventText:
				fmt.Print(ev.Text)
				assistantText += ev.Text
			case models.AgentEventToolCallStarted:
				fmt.Printf("\n[calling %s]\n", ev.ToolName)
			case models.AgentEventToolResult:
				fmt.Printf("[%s -> %s]\n", ev.ToolName, ev.Content)
			case models.AgentEventError:
				fmt.Fprintf(os.Stderr, "\nerror: %v\n", ev.Err)
			case models.AgentEventCompleted:
				fmt.Println()
			}
		}
		if assistantText != "" {
			conversation = append(conversation, models.NewMessage(models.RoleAssistant, assistantText))
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

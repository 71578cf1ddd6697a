package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/onloopai/onloop/pkg/models"
)

// fileConfig is the shape of the optional YAML config file accepted by
// --config. It only ever supplies defaults; a non-empty --model or a
// positive --ctx or --gpu-layers on the command line wins over the file. Grounded on the teacher's internal/config YAML loader,
// reduced to the single flat document this CLI needs — the core itself
// owns no config loader, per SPEC_FULL.md's ambient-configuration note.
type fileConfig struct {
	ModelPath        string  `yaml:"model_path"`
	ContextSize      int     `yaml:"context_size"`
	GPUOffloadLayers int     `yaml:"gpu_offload_layers"`
	Temperature      float64 `yaml:"temperature"`
	TopP             float64 `yaml:"top_p"`
	Seed             int64   `yaml:"seed"`
}

func loadFileConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// toEngineConfiguration merges a fileConfig with the caller's flag values.
// A non-empty modelPath and a positive ctxSize or gpuLayers replace the
// file's value; an empty or zero flag leaves the file's value in place.
func (fc fileConfig) toEngineConfiguration(modelPath string, ctxSize, gpuLayers int) models.EngineConfiguration {
	cfg := models.EngineConfiguration{
		ModelPath:        fc.ModelPath,
		ContextSize:      fc.ContextSize,
		GPUOffloadLayers: fc.GPUOffloadLayers,
		Temperature:      fc.Temperature,
		TopP:             fc.TopP,
		Seed:             fc.Seed,
	}
	if modelPath != "" {
		cfg.ModelPath = modelPath
	}
	if ctxSize > 0 {
		cfg.ContextSize = ctxSize
	}
	if gpuLayers > 0 {
		cfg.GPUOffloadLayers = gpuLayers
	}
	return cfg
}

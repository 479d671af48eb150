package app

import (
	"errors"
	"fmt"

	"github.com/vk/flowforge/internal/compiler"
	"github.com/vk/flowforge/internal/value"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	WorkflowPath string // hcl file or directory

	ExportBackends []string // compiler backend names; empty means no export
	OutDir         string

	Run       bool // execute the workflow on the remote service
	ServerURL string
	Namespace string
	Token     string

	Overrides *value.Params

	LogFormat string
	LogLevel  string
}

// NewConfig validates a Config and returns it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.WorkflowPath == "" {
		return nil, errors.New("WorkflowPath is a required configuration field and cannot be empty")
	}
	if len(cfg.ExportBackends) == 0 && !cfg.Run {
		return nil, errors.New("nothing to do: set at least one export backend or enable run")
	}
	for _, name := range cfg.ExportBackends {
		if _, err := compiler.ByName(name); err != nil {
			return nil, err
		}
	}
	if cfg.Run && cfg.ServerURL == "" {
		return nil, fmt.Errorf("ServerURL is required to run a workflow")
	}
	if cfg.OutDir == "" {
		cfg.OutDir = "."
	}
	return &cfg, nil
}

package config

import (
	"time"

	"github.com/spf13/pflag"

	"stakeScope/internal/hex"
	"stakeScope/internal/project"
)

// ProjectConfig holds configuration for the project command.
type ProjectConfig struct {
	RPCURL       string
	Input        string
	PGDSN        string
	EnsureSchema bool
	StateFile    string
	CursorName   string
	Contract     string
	Schema       hex.SchemaVersion
	OnRedundant  project.RedundantPolicy
	MaxRetries   int
	RetryBackoff time.Duration
	MetricsAddr  string
	LogLevel     string
}

// LoadProject merges config file, environment variables, and flags into ProjectConfig.
func LoadProject(cfgFile string, flags *pflag.FlagSet) (ProjectConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"in":            "./data/logs.jsonl",
		"ensure-schema": true,
		"state-file":    "./data/state.json",
		"cursor-name":   project.DefaultCursorName,
		"contract":      hex.ContractAddress,
		"schema":        string(hex.SchemaPacked),
		"on-redundant":  string(project.RedundantSkip),
		"max-retries":   3,
		"retry-backoff": 500 * time.Millisecond,
		"log-level":     "info",
	})
	if err != nil {
		return ProjectConfig{}, err
	}

	schema, err := hex.ParseSchemaVersion(v.GetString("schema"))
	if err != nil {
		return ProjectConfig{}, err
	}
	policy, err := project.ParseRedundantPolicy(v.GetString("on-redundant"))
	if err != nil {
		return ProjectConfig{}, err
	}

	cfg := ProjectConfig{
		RPCURL:       v.GetString("rpc"),
		Input:        v.GetString("in"),
		PGDSN:        v.GetString("pg-dsn"),
		EnsureSchema: v.GetBool("ensure-schema"),
		StateFile:    v.GetString("state-file"),
		CursorName:   v.GetString("cursor-name"),
		Contract:     v.GetString("contract"),
		Schema:       schema,
		OnRedundant:  policy,
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		MetricsAddr:  v.GetString("metrics-addr"),
		LogLevel:     v.GetString("log-level"),
	}

	return cfg, nil
}

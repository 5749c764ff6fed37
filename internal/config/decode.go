package config

import (
	"github.com/spf13/pflag"

	"stakeScope/internal/hex"
)

// DecodeConfig holds configuration for the decode command.
type DecodeConfig struct {
	RPCURL   string
	In       string
	Out      string
	Errors   string
	Schema   hex.SchemaVersion
	LogLevel string
}

// LoadDecode merges config file, environment variables, and flags into DecodeConfig.
func LoadDecode(cfgFile string, flags *pflag.FlagSet) (DecodeConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"out":       "./data/typed_events.jsonl",
		"errors":    "./data/decode_errors.jsonl",
		"schema":    string(hex.SchemaPacked),
		"log-level": "info",
	})
	if err != nil {
		return DecodeConfig{}, err
	}

	schema, err := hex.ParseSchemaVersion(v.GetString("schema"))
	if err != nil {
		return DecodeConfig{}, err
	}

	cfg := DecodeConfig{
		RPCURL:   v.GetString("rpc"),
		In:       v.GetString("in"),
		Out:      v.GetString("out"),
		Errors:   v.GetString("errors"),
		Schema:   schema,
		LogLevel: v.GetString("log-level"),
	}

	return cfg, nil
}

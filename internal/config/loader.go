// Package config loads and validates tutorial workflow configuration and
// Connect server settings.
package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB

	// keyDelim separates nested keys inside koanf. Workflow names and
	// artifact keys may contain dots, so "." cannot be used.
	keyDelim = "::"

	// EnvPrefix prefixes environment variables that override global_vars.
	EnvPrefix = "TUTORIAL_"
)

// envOverrides maps environment variables (without EnvPrefix) to config keys.
var envOverrides = map[string]string{
	"DATA_DIR":  "global_vars" + keyDelim + "data_dir",
	"SPECIES":   "global_vars" + keyDelim + "species",
	"OVERWRITE": "global_vars" + keyDelim + "overwrite",
}

// LoadWorkflowConfig loads a workflow configuration from a YAML file, then
// overrides global_vars with environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (TUTORIAL_DATA_DIR, TUTORIAL_SPECIES, TUTORIAL_OVERWRITE)
//  2. YAML config file
//
// Errors:
//   - *NotFoundError if configPath does not exist or is a directory
//   - *ParseError if the YAML is malformed
//   - *ValidationError listing every missing or mistyped field
//
// # Example
//
//	cfg, err := config.LoadWorkflowConfig("config.yaml")
//	if err != nil {
//	    return err
//	}
func LoadWorkflowConfig(configPath string) (*WorkflowConfig, error) {
	content, err := readConfigFile(configPath)
	if err != nil {
		return nil, err
	}

	k := koanf.NewWithConf(koanf.Conf{Delim: keyDelim})
	if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
		return nil, &ParseError{Path: configPath, Err: err}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, keyDelim, envOverride), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg WorkflowConfig
	if err := unmarshalStrict(k, &cfg); err != nil {
		return nil, &ValidationError{Source: configPath, Fields: []FieldError{{Message: err.Error()}}}
	}

	if err := validateStruct(configPath, cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadConnectSettings loads Connect server settings from a YAML file whose
// top level maps server names to {url, pat_secret_name}.
func LoadConnectSettings(path string) (ConnectSettings, error) {
	content, err := readConfigFile(path)
	if err != nil {
		return nil, err
	}

	k := koanf.NewWithConf(koanf.Conf{Delim: keyDelim})
	if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	var settings ConnectSettings
	if err := unmarshalStrict(k, &settings); err != nil {
		return nil, &ValidationError{Source: path, Fields: []FieldError{{Message: err.Error()}}}
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// envOverride maps a TUTORIAL_* variable to its config key. Unknown
// variables are dropped. TUTORIAL_OVERWRITE is parsed as a bool; an
// unparsable value is kept as a string and fails decoding.
func envOverride(key, value string) (string, interface{}) {
	name := strings.TrimPrefix(key, EnvPrefix)
	path, ok := envOverrides[name]
	if !ok {
		return "", nil
	}
	if name == "OVERWRITE" {
		if b, err := strconv.ParseBool(value); err == nil {
			return path, b
		}
	}
	return path, value
}

// unmarshalStrict decodes without type coercion, so a YAML bool or number
// given for a string field (or the reverse) is an error.
func unmarshalStrict(k *koanf.Koanf, out interface{}) error {
	return k.UnmarshalWithConf("", out, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           out,
			WeaklyTypedInput: false,
		},
	})
}

// readConfigFile opens the file once and validates it through the open
// descriptor before reading.
func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Path: path, Reason: "configuration file not found"}
		}
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.IsDir() {
		return nil, &NotFoundError{Path: path, Reason: "configuration path is a directory, not a file"}
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

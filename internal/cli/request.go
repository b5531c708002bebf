package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/geobuild/internal/core"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// LoadRequestFile reads a build request from a JSON, YAML or TOML file,
// chosen by extension. "-" reads JSON from stdin.
//
// YAML and TOML documents are converted to JSON before decoding so that
// every format goes through the same BuildRequest decoding, including the
// nested csv_files form.
func LoadRequestFile(path string, stdin io.Reader) (core.BuildRequest, error) {
	var req core.BuildRequest

	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return req, fmt.Errorf("failed to read request file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return req, fmt.Errorf("%w: yaml: %v", core.ErrInvalidRequest, err)
		}
		if data, err = json.Marshal(doc); err != nil {
			return req, fmt.Errorf("%w: yaml: %v", core.ErrInvalidRequest, err)
		}
	case ".toml":
		var doc map[string]any
		if err := toml.Unmarshal(data, &doc); err != nil {
			return req, fmt.Errorf("%w: toml: %v", core.ErrInvalidRequest, err)
		}
		if data, err = json.Marshal(doc); err != nil {
			return req, fmt.Errorf("%w: toml: %v", core.ErrInvalidRequest, err)
		}
	}

	if err := json.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("%w: %v", core.ErrInvalidRequest, err)
	}
	return req, nil
}

// parseMapping accepts inline JSON or @file.
func parseMapping(s string) (json.RawMessage, error) {
	if rest, ok := strings.CutPrefix(s, "@"); ok {
		data, err := os.ReadFile(rest)
		if err != nil {
			return nil, fmt.Errorf("failed to read mapping file: %w", err)
		}
		s = string(data)
	}
	raw := json.RawMessage(strings.TrimSpace(s))
	if !json.Valid(raw) {
		return nil, fmt.Errorf("invalid column mapping: not valid JSON")
	}
	return raw, nil
}

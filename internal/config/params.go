package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat is returned for parameter files whose extension is
// neither YAML nor TOML.
var ErrUnsupportedFormat = errors.New("unsupported parameter file format")

// Format identifies a parameter file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatOf derives the encoding from path's extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// ParseFormat validates a format name such as "yaml" or "toml".
func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimPrefix(name, "."))) {
	case FormatYAML, "yml":
		return FormatYAML, nil
	case FormatTOML:
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// Extension returns the file extension, dot included, used for f.
func (f Format) Extension() string {
	return "." + string(f)
}

// SaveParams writes params to path, creating parent directories as needed.
// params must be a struct (or pointer to one) tagged for yaml and toml.
func SaveParams(path string, params interface{}) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}

	var data []byte
	switch format {
	case FormatYAML:
		data, err = yaml.Marshal(params)
	case FormatTOML:
		buf := &bytes.Buffer{}
		err = toml.NewEncoder(buf).Encode(params)
		data = buf.Bytes()
	}
	if err != nil {
		return fmt.Errorf("encode %s parameters: %w", format, err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create parameter directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write parameters: %w", err)
	}
	return nil
}

// LoadParams decodes the file at path into params. Keys missing from the
// file leave the corresponding fields untouched.
func LoadParams(path string, params interface{}) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read parameters: %w", err)
	}

	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, params)
	case FormatTOML:
		_, err = toml.Decode(string(data), params)
	}
	if err != nil {
		return fmt.Errorf("decode %s parameters from %s: %w", format, path, err)
	}
	return nil
}

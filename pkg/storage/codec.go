/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: codec.go
Description: Snapshot encoders and decoders for JSON, YAML, and TOML, plus file helpers
that pick the format from the file extension.
*/

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format is a snapshot serialisation format
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// ErrUnknownFormat is returned for unsupported formats or file extensions
var ErrUnknownFormat = errors.New("unknown snapshot format")

// ParseFormat validates a format name
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// FormatFromPath derives the format from a file extension
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}

// Encode writes a snapshot
func Encode(w io.Writer, s Snapshot, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return err
		}
		return enc.Close()
	case FormatTOML:
		return toml.NewEncoder(w).Encode(s)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}

// Decode reads a snapshot
func Decode(r io.Reader, f Format) (Snapshot, error) {
	var s Snapshot
	var err error
	switch f {
	case FormatJSON:
		err = json.NewDecoder(r).Decode(&s)
	case FormatYAML:
		err = yaml.NewDecoder(r).Decode(&s)
	case FormatTOML:
		_, err = toml.NewDecoder(r).Decode(&s)
	default:
		return s, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	if err != nil {
		return s, fmt.Errorf("failed to decode %s snapshot: %w", f, err)
	}
	return s, nil
}

// Save writes a snapshot to path in the format implied by its extension
func Save(path string, s Snapshot) error {
	f, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}
	if err := Encode(file, s, f); err != nil {
		file.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return file.Close()
}

// Load reads a snapshot from path in the format implied by its extension
func Load(path string) (Snapshot, error) {
	f, err := FormatFromPath(path)
	if err != nil {
		return Snapshot{}, err
	}
	file, err := os.Open(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to open snapshot file: %w", err)
	}
	defer file.Close()
	return Decode(file, f)
}

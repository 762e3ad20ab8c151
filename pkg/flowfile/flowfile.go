// Package flowfile reads and writes flow documents on disk.
//
// A file holds either a bare flow document ({nodes, edges}) or a stored flow
// ({id, name, flowData}), encoded as JSON or YAML. The format is chosen by
// extension.
package flowfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/botflow/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Format is a serialization format.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrUnknownFormat is returned for unsupported formats or extensions.
var ErrUnknownFormat = errors.New("unknown flow file format")

// ParseFormat accepts json, yaml or yml.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// FormatFor infers the format from a file extension.
func FormatFor(path string) (Format, error) {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}

// document is the union of both shapes a file may hold.
type document struct {
	ID       int64         `json:"id" yaml:"id"`
	Name     string        `json:"name" yaml:"name"`
	FlowData *domain.Flow  `json:"flowData" yaml:"flowData"`
	Nodes    []domain.Node `json:"nodes" yaml:"nodes"`
	Edges    []domain.Edge `json:"edges" yaml:"edges"`
}

// Decode parses data in format f. Bare flow documents come back with a zero
// id and an empty name.
func Decode(data []byte, f Format) (domain.StoredFlow, error) {
	var doc document
	var err error
	switch f {
	case FormatJSON:
		err = json.Unmarshal(data, &doc)
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	default:
		return domain.StoredFlow{}, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	if err != nil {
		return domain.StoredFlow{}, fmt.Errorf("failed to decode flow: %w", err)
	}

	out := domain.StoredFlow{ID: doc.ID, Name: doc.Name}
	if doc.FlowData != nil {
		out.FlowData = *doc.FlowData
	} else {
		out.FlowData = domain.Flow{Nodes: doc.Nodes, Edges: doc.Edges}
	}
	if out.FlowData.Nodes == nil || out.FlowData.Edges == nil {
		return domain.StoredFlow{}, &domain.ValidationError{Reason: "nodes and edges required"}
	}
	return out, nil
}

// Encode serializes a stored flow in format f. JSON output is indented.
func Encode(sf domain.StoredFlow, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(sf); err != nil {
			return nil, fmt.Errorf("failed to encode flow: %w", err)
		}
		return buf.Bytes(), nil
	case FormatYAML:
		data, err := yaml.Marshal(sf)
		if err != nil {
			return nil, fmt.Errorf("failed to encode flow: %w", err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// Load reads a flow file, inferring the format from its extension.
func Load(path string) (domain.StoredFlow, error) {
	f, err := FormatFor(path)
	if err != nil {
		return domain.StoredFlow{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.StoredFlow{}, fmt.Errorf("failed to read flow file: %w", err)
	}
	return Decode(data, f)
}

// Save writes sf to path atomically, inferring the format from its extension.
func Save(path string, sf domain.StoredFlow) error {
	f, err := FormatFor(path)
	if err != nil {
		return err
	}
	data, err := Encode(sf, f)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".flow-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write flow file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close flow file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to rename flow file: %w", err)
	}
	return nil
}

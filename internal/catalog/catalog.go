// Package catalog defines the routable tool catalog: the tool definitions a
// caller hands to the router, loading them from disk, and the canonical
// digest used to invalidate persisted embeddings.
package catalog

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tidwall/jsonc"
	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"
)

// Tool is a named, described, keyword-tagged capability the router can surface.
type Tool struct {
	// Name is the unique, stable identifier of the tool.
	Name string `json:"name" yaml:"name"`

	// Description is free text and the semantic anchor for embedding matches.
	Description string `json:"description" yaml:"description"`

	// Keywords are matched as case-insensitive substrings of the query.
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
}

// file is the object form of a catalog file. A bare list is accepted too.
type file struct {
	Tools []Tool `json:"tools" yaml:"tools"`
}

// Load reads a tool catalog from path. YAML (.yaml, .yml) and JSON (.json,
// .jsonc) are supported; JSON files may contain comments and trailing commas.
func Load(path string) ([]Tool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	tools, err := Parse(filepath.Ext(path), data)
	if err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}

	if err := Validate(tools); err != nil {
		return nil, err
	}
	return tools, nil
}

// Parse decodes catalog bytes. ext selects the format and includes the dot.
func Parse(ext string, data []byte) ([]Tool, error) {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		return parseYAML(data)
	case ".json", ".jsonc":
		return parseJSON(jsonc.ToJSON(data))
	default:
		return nil, fmt.Errorf("unsupported catalog format %q", ext)
	}
}

func parseYAML(data []byte) ([]Tool, error) {
	var list []Tool
	if err := yaml.Unmarshal(data, &list); err == nil {
		return list, nil
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return f.Tools, nil
}

func parseJSON(data []byte) ([]Tool, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var list []Tool
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, err
		}
		return list, nil
	}

	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return f.Tools, nil
}

// Validate checks that every tool has a non-empty, unique name.
func Validate(tools []Tool) error {
	seen := make(map[string]bool, len(tools))
	for i, t := range tools {
		if strings.TrimSpace(t.Name) == "" {
			return fmt.Errorf("tool %d: name cannot be empty", i)
		}
		if seen[t.Name] {
			return fmt.Errorf("duplicate tool name %q", t.Name)
		}
		seen[t.Name] = true
	}
	return nil
}

// Clone returns a deep copy so later edits by the caller cannot leak in.
func Clone(tools []Tool) []Tool {
	out := make([]Tool, len(tools))
	for i, t := range tools {
		out[i] = Tool{
			Name:        t.Name,
			Description: t.Description,
			Keywords:    append([]string(nil), t.Keywords...),
		}
	}
	return out
}

// Names returns the tool names in catalog order.
func Names(tools []Tool) []string {
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name
	}
	return names
}

// Filter returns the tools whose names are in keep, preserving catalog order.
func Filter(tools []Tool, keep map[string]struct{}) []Tool {
	out := make([]Tool, 0, len(keep))
	for _, t := range tools {
		if _, ok := keep[t.Name]; ok {
			out = append(out, t)
		}
	}
	return out
}

// Hash returns a hex BLAKE3 digest over the name-sorted set of
// (name, description, keywords) tuples. Every field is length-prefixed so
// that no two distinct catalogs share an encoding.
func Hash(tools []Tool) string {
	sorted := make([]Tool, len(tools))
	copy(sorted, tools)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	h := blake3.New()
	writeField := func(s string) {
		fmt.Fprintf(h, "%d:%s", len(s), s)
	}

	fmt.Fprintf(h, "tools:%d;", len(sorted))
	for _, t := range sorted {
		writeField(t.Name)
		writeField(t.Description)
		fmt.Fprintf(h, "kw:%d;", len(t.Keywords))
		for _, kw := range t.Keywords {
			writeField(kw)
		}
	}

	return hex.EncodeToString(h.Sum(nil))
}

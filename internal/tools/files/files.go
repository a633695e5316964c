// Package files implements the filesystem capabilities exposed to the LLM:
// reading, writing and listing files, optionally confined to a workspace
// root.
package files

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Resolver confines relative paths to a workspace root when restrict is
// true, mirroring the config key tools.restrictToWorkspace.
type Resolver struct {
	Root     string
	Restrict bool
}

// Resolve returns the absolute path for p, rejecting any path that would
// escape Root when restriction is enabled.
func (r Resolver) Resolve(p string) (string, error) {
	if !r.Restrict {
		if filepath.IsAbs(p) {
			return filepath.Clean(p), nil
		}
		return filepath.Join(r.Root, p), nil
	}
	joined := filepath.Join(r.Root, p)
	cleanRoot := filepath.Clean(r.Root)
	if joined != cleanRoot && !strings.HasPrefix(joined, cleanRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes workspace root", p)
	}
	return joined, nil
}

// ReadTool reads a file's full contents.
type ReadTool struct {
	Resolver Resolver
}

func (t *ReadTool) Name() string        { return "read_file" }
func (t *ReadTool) Description() string { return "Read the full contents of a text file." }
func (t *ReadTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {"path": {"type": "string", "description": "File path, relative to the workspace"}},
		"required": ["path"]
	}`)
}

func (t *ReadTool) Execute(_ context.Context, args json.RawMessage) (string, error) {
	var in struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return "", err
	}
	resolved, err := t.Resolver.Resolve(in.Path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// WriteTool overwrites (or creates) a file with the given content.
type WriteTool struct {
	Resolver Resolver
}

func (t *WriteTool) Name() string        { return "write_file" }
func (t *WriteTool) Description() string { return "Write text content to a file, creating it if needed." }
func (t *WriteTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"path": {"type": "string", "description": "File path, relative to the workspace"},
			"content": {"type": "string", "description": "Text to write"}
		},
		"required": ["path", "content"]
	}`)
}

func (t *WriteTool) Execute(_ context.Context, args json.RawMessage) (string, error) {
	var in struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return "", err
	}
	resolved, err := t.Resolver.Resolve(in.Path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(resolved, []byte(in.Content), 0o644); err != nil {
		return "", err
	}
	return fmt.Sprintf("wrote %d bytes to %s", len(in.Content), in.Path), nil
}

// ListTool lists files under a directory, non-recursively.
type ListTool struct {
	Resolver Resolver
}

func (t *ListTool) Name() string        { return "list_files" }
func (t *ListTool) Description() string { return "List files and directories under a given path." }
func (t *ListTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {"path": {"type": "string", "description": "Directory path, relative to the workspace"}},
		"required": ["path"]
	}`)
}

func (t *ListTool) Execute(_ context.Context, args json.RawMessage) (string, error) {
	var in struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return "", err
	}
	resolved, err := t.Resolver.Resolve(in.Path)
	if err != nil {
		return "", err
	}
	entries, err := os.ReadDir(resolved)
	if err != nil {
		return "", err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, "\n"), nil
}

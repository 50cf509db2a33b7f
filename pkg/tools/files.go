package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideWorkspace is returned when a path escapes the workspace root
// after canonicalization.
var ErrOutsideWorkspace = errors.New("Path is outside workspace")

// FilesTool reads and writes files confined to a workspace root.
type FilesTool struct {
	root string
}

type filesInput struct {
	Action  string  `json:"action"`
	Path    string  `json:"path"`
	Content *string `json:"content"`
}

// NewFilesTool creates the files tool rooted at the given workspace
// directory.
func NewFilesTool(root string) *FilesTool {
	return &FilesTool{root: root}
}

// Name returns the name of the tool.
func (t *FilesTool) Name() string { return "files" }

// Description returns the description surfaced to the model.
func (t *FilesTool) Description() string { return "Read or write local files" }

// Run parses the JSON input and dispatches to read or write.
func (t *FilesTool) Run(input string) (string, error) {
	var payload filesInput
	if err := json.Unmarshal([]byte(input), &payload); err != nil {
		return "", errors.New("invalid JSON for files tool")
	}
	if payload.Path == "" {
		return "", errors.New("missing path for files tool")
	}

	resolved, err := t.resolve(payload.Path)
	if err != nil {
		return "", err
	}

	switch payload.Action {
	case "read":
		data, err := os.ReadFile(resolved)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", payload.Path, err)
		}
		return string(data), nil
	case "write":
		if payload.Content == nil {
			return "", errors.New("missing content for write action")
		}
		if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
			return "", fmt.Errorf("create directories: %w", err)
		}
		if err := os.WriteFile(resolved, []byte(*payload.Content), 0o644); err != nil {
			return "", fmt.Errorf("write %s: %w", payload.Path, err)
		}
		return "ok", nil
	default:
		return "", fmt.Errorf("unsupported files tool action: %s", payload.Action)
	}
}

// resolve confines a path to the workspace root. The path is stripped of
// null bytes, rooted at the workspace, then canonicalized following
// symlinks; for targets that do not exist yet the nearest existing
// ancestor is canonicalized instead, so paths created by a write are
// confined too. Percent-encoded traversal sequences are not decoded; they
// end up as literal filename characters.
func (t *FilesTool) resolve(path string) (string, error) {
	sanitized := strings.TrimSpace(strings.ReplaceAll(path, "\x00", ""))
	if sanitized == "" {
		return "", errors.New("invalid path")
	}

	rootAbs, err := filepath.Abs(t.root)
	if err != nil {
		return "", fmt.Errorf("resolve workspace root: %w", err)
	}
	rootReal, err := filepath.EvalSymlinks(rootAbs)
	if err != nil {
		rootReal = rootAbs
	}

	var target string
	if filepath.IsAbs(sanitized) {
		target = filepath.Clean(sanitized)
	} else {
		target = filepath.Join(rootAbs, sanitized)
	}

	real, err := canonicalize(target)
	if err != nil {
		return "", err
	}

	rel, err := filepath.Rel(rootReal, real)
	if err != nil {
		return "", ErrOutsideWorkspace
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) || filepath.IsAbs(rel) {
		return "", ErrOutsideWorkspace
	}
	return real, nil
}

// canonicalize resolves the real path of target, or of its nearest
// existing ancestor when the target does not exist, re-joining the
// non-existing tail afterwards.
func canonicalize(target string) (string, error) {
	if real, err := filepath.EvalSymlinks(target); err == nil {
		return real, nil
	}

	dir := filepath.Dir(target)
	tail := filepath.Base(target)
	for {
		if real, err := filepath.EvalSymlinks(dir); err == nil {
			return filepath.Join(real, tail), nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			// No existing ancestor; fall back to the cleaned path.
			return filepath.Clean(target), nil
		}
		tail = filepath.Join(filepath.Base(dir), tail)
		dir = parent
	}
}

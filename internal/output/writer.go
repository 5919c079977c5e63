package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wonny/qcdash/internal/contracts"
	"github.com/wonny/qcdash/pkg/logger"
)

// IOError is a failure to persist or read the artifact. Fatal to a run.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Writer persists dashboard snapshots atomically
// ⭐ SSOT: 산출물 파일 쓰기는 여기서만
type Writer struct {
	logger *logger.Logger
}

// NewWriter creates a writer
func NewWriter(log *logger.Logger) *Writer {
	return &Writer{logger: log.WithField("module", "output")}
}

// Write serializes snap and moves it into place at path.
// Readers see either the previous artifact or the new one, never a partial file.
func (w *Writer) Write(snap contracts.DashboardSnapshot, path string) error {
	data, err := Encode(snap)
	if err != nil {
		return &IOError{Op: "encode", Path: path, Err: err}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &IOError{Op: "mkdir", Path: dir, Err: err}
	}

	// 같은 디렉터리에 임시 파일을 만들어야 rename이 원자적
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &IOError{Op: "create temp", Path: path, Err: err}
	}
	tmpPath := tmp.Name()

	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return &IOError{Op: "write", Path: tmpPath, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return &IOError{Op: "sync", Path: tmpPath, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &IOError{Op: "close", Path: tmpPath, Err: err}
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return &IOError{Op: "chmod", Path: tmpPath, Err: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return &IOError{Op: "rename", Path: path, Err: err}
	}
	committed = true

	w.logger.WithFields(map[string]interface{}{
		"path":     path,
		"bytes":    len(data),
		"projects": len(snap.Projects),
	}).Info("Snapshot written")

	return nil
}

// Encode renders the artifact bytes: indented JSON with a trailing newline
func Encode(snap contracts.DashboardSnapshot) ([]byte, error) {
	// 빈 목록은 null이 아니라 []로
	projects := make([]contracts.ProjectEntry, len(snap.Projects))
	copy(projects, snap.Projects)
	for i := range projects {
		if projects[i].EquityCurve == nil {
			projects[i].EquityCurve = []contracts.EquityPoint{}
		}
	}
	snap.Projects = projects

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(snap); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Read parses an artifact previously written by Write
func Read(path string) (*contracts.DashboardSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}

	var snap contracts.DashboardSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, &IOError{Op: "decode", Path: path, Err: err}
	}
	return &snap, nil
}

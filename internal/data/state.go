package data

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/DevRickLin/msg-forwarder/internal/biz/domain"
	"github.com/DevRickLin/msg-forwarder/internal/biz/repo"
)

// stateRepo persists daemon state as a JSON file
type stateRepo struct {
	path   string
	logger *slog.Logger
}

// NewStateRepo creates a file-backed state repository
func NewStateRepo(path string, logger *slog.Logger) repo.StateRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &stateRepo{path: path, logger: logger.With("component", "state")}
}

// Path returns the state file path
func (r *stateRepo) Path() string {
	return r.path
}

// Load reads the state file; any problem yields an empty state
func (r *stateRepo) Load() *domain.DaemonState {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if !os.IsNotExist(err) {
			r.logger.Warn("state file unreadable, starting empty", "path", r.path, "error", err)
		}
		return domain.NewDaemonState()
	}

	var state domain.DaemonState
	if err := json.Unmarshal(data, &state); err != nil {
		r.logger.Warn("state file corrupt, starting empty", "path", r.path, "error", err)
		return domain.NewDaemonState()
	}

	state.Normalize()
	return &state
}

// Save writes the state atomically: temp file in the same directory,
// fsync, rename over the target, then fsync the directory
func (r *stateRepo) Save(state *domain.DaemonState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	file, err := os.CreateTemp(dir, "."+filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temporary state file: %w", err)
	}
	tmpPath := file.Name()

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temporary state file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync temporary state file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temporary state file: %w", err)
	}

	if err := os.Rename(tmpPath, r.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename state file into place: %w", err)
	}

	if d, err := os.Open(dir); err == nil {
		d.Sync()
		d.Close()
	}
	return nil
}

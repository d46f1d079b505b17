package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"tokenrotor/pkg/engine"
	"tokenrotor/pkg/logger"
)

// FileStore persists checkpoints as one JSON file per run name. Writes go
// through a temporary file and rename so a crash mid-save never leaves a
// half-written checkpoint behind.
type FileStore struct {
	dir    string
	logger logger.Logger
}

// NewFileStore creates a file-backed checkpoint store rooted at dir. An
// empty dir falls back to the platform data directory.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dataDir, err := getDataDirectory()
		if err != nil {
			return nil, fmt.Errorf("failed to get data directory: %w", err)
		}
		dir = filepath.Join(dataDir, "checkpoints")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoints directory: %w", err)
	}

	return &FileStore{
		dir:    dir,
		logger: logger.GetLogger(),
	}, nil
}

func (s *FileStore) path(runName string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s.checkpoint.json", runName))
}

// Load returns the persisted checkpoint for runName. A missing or
// unparseable file yields the zero checkpoint: the run starts over rather
// than failing.
func (s *FileStore) Load(ctx context.Context, runName string) (engine.Checkpoint, error) {
	data, err := os.ReadFile(s.path(runName))
	if err != nil {
		if os.IsNotExist(err) {
			return engine.Checkpoint{}, nil
		}
		return engine.Checkpoint{}, fmt.Errorf("failed to read checkpoint file: %w", err)
	}

	var cp engine.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil || cp.LastID < 0 || cp.Elapsed < 0 {
		s.logger.WarnWithFields("Checkpoint unparseable, starting over", map[string]interface{}{
			"run":  runName,
			"path": s.path(runName),
		})
		return engine.Checkpoint{}, nil
	}

	s.logger.DebugWithFields("Checkpoint loaded", map[string]interface{}{
		"run":     runName,
		"last_id": cp.LastID,
		"elapsed": cp.Elapsed.String(),
	})

	return cp, nil
}

// Save durably overwrites the checkpoint for runName.
func (s *FileStore) Save(ctx context.Context, runName string, cp engine.Checkpoint) error {
	path := s.path(runName)
	tempPath := path + ".tmp"

	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(cp); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync checkpoint file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close checkpoint file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}

	return nil
}

// Reset deletes the checkpoint for runName. A missing file is not an error.
func (s *FileStore) Reset(ctx context.Context, runName string) error {
	if err := os.Remove(s.path(runName)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}

	s.logger.WithField("run", runName).Debug("Checkpoint deleted")
	return nil
}

// getDataDirectory returns the appropriate data directory for the current OS
func getDataDirectory() (string, error) {
	var dataDir string

	switch runtime.GOOS {
	case "linux":
		// Use XDG_DATA_HOME if set, otherwise ~/.local/share
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			dataDir = filepath.Join(xdgDataHome, "tokenrotor")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share", "tokenrotor")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, "Library", "Application Support", "tokenrotor")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		dataDir = filepath.Join(appData, "tokenrotor")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	return dataDir, nil
}

package thresholds

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/imgdiff/internal/utils"
)

// FileName is the default threshold file name inside the app directory.
const FileName = "thresholds.yaml"

type document struct {
	Thresholds Config `yaml:"thresholds"`
}

// DefaultPath returns ~/.imgdiff/thresholds.yaml.
func DefaultPath() (string, error) {
	dir, err := utils.AppDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

func fileLock(path string) (*flock.Flock, error) {
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("mkdir thresholds dir: %w", err)
	}
	return flock.New(path + ".lock"), nil
}

// Load reads and validates the thresholds stored at path. Keys absent from the
// file keep their default values.
func Load(path string) (Config, error) {
	lock, err := fileLock(path)
	if err != nil {
		return Config{}, err
	}
	if err := lock.RLock(); err != nil {
		return Config{}, fmt.Errorf("lock thresholds: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read thresholds: %w", err)
	}
	doc := document{Thresholds: Default()}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return Config{}, fmt.Errorf("parse thresholds: %w", err)
	}
	if err := doc.Thresholds.Validate(); err != nil {
		return Config{}, err
	}
	return doc.Thresholds, nil
}

// Save writes cfg to path atomically while holding the file lock.
func Save(path string, cfg Config) error {
	b, err := yaml.Marshal(document{Thresholds: cfg})
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	lock, err := fileLock(path)
	if err != nil {
		return err
	}
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock thresholds: %w", err)
	}
	defer func() { _ = lock.Unlock() }()
	if err := utils.SafeWriteFile(path, b); err != nil {
		return fmt.Errorf("write thresholds: %w", err)
	}
	return nil
}

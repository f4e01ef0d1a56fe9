package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"loraverify/internal/common/fsutil"
	"loraverify/internal/description"
	"loraverify/pkg/types"
)

// DescriptionExts are the file extensions description.Load understands.
var DescriptionExts = []string{".yaml", ".yml", ".json", ".toml"}

// Scanner finds model descriptions in a directory.
type Scanner struct {
	// Recursive descends into subdirectories.
	Recursive bool
}

// NewScanner returns a Scanner that reads only the top level of a directory.
func NewScanner() *Scanner { return &Scanner{} }

// Scan loads every description file under dir. Files that fail to load are
// still listed, with Error set. Entries are ordered by path.
func (s *Scanner) Scan(dir string) ([]types.DescriptionEntry, error) {
	abs, err := fsutil.Resolve(dir)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("read dir: %s is not a directory", abs)
	}
	var out []types.DescriptionEntry
	err = filepath.WalkDir(abs, func(p string, e os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if e.IsDir() {
			if p != abs && !s.Recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if !fsutil.HasExt(e.Name(), DescriptionExts...) {
			return nil
		}
		out = append(out, entry(p))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	return out, nil
}

func entry(path string) types.DescriptionEntry {
	base := filepath.Base(path)
	e := types.DescriptionEntry{Name: strings.TrimSuffix(base, filepath.Ext(base)), Path: path}
	d, err := description.Load(path)
	if err != nil {
		e.Error = err.Error()
		return e
	}
	e.Adapters = d.AdapterEnabled()
	e.Rank = d.LoRA.R
	return e
}

// LoadDir scans the top level of dir with a default Scanner.
func LoadDir(dir string) ([]types.DescriptionEntry, error) {
	return NewScanner().Scan(dir)
}

package filesource

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/autokuma/autokuma/internal/sources"
)

var recognizedExt = map[string]bool{
	".json":   true,
	".yaml":   true,
	".yml":    true,
	".toml":   true,
	".labels": true,
}

// scan walks cfg.Root and returns one bundle per object found across all
// recognized files, per §4.2.3.
func scan(cfg Config) ([]sources.LabelBundle, error) {
	var bundles []sources.LabelBundle

	walkFn := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		base := d.Name()
		if d.IsDir() {
			if strings.HasPrefix(base, ".") && path != cfg.Root {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			if !cfg.FollowSymlinks {
				return nil
			}
			info, statErr := os.Stat(path)
			if statErr != nil || info.IsDir() {
				return nil
			}
		}
		if strings.HasPrefix(base, ".") {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(base))
		if !recognizedExt[ext] {
			return nil
		}

		rel, relErr := filepath.Rel(cfg.Root, path)
		if relErr != nil {
			return relErr
		}
		stem := strings.TrimSuffix(filepath.ToSlash(rel), ext)

		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return fmt.Errorf("read %s: %w", path, readErr)
		}
		objects, decodeErr := decodeFile(ext, data)
		if decodeErr != nil {
			return fmt.Errorf("parse %s: %w", path, decodeErr)
		}

		if len(objects) == 1 {
			bundles = append(bundles, sources.LabelBundle{
				SourceKind: "file",
				SourceID:   stem,
				Labels:     objects[0],
				Context:    map[string]any{"file": map[string]any{"path": rel}},
			})
			return nil
		}
		for i, obj := range objects {
			bundles = append(bundles, sources.LabelBundle{
				SourceKind: "file",
				SourceID:   fmt.Sprintf("%s[%d]", stem, i),
				Labels:     obj,
				Context:    map[string]any{"file": map[string]any{"path": rel, "index": i}},
			})
		}
		return nil
	}

	if err := filepath.WalkDir(cfg.Root, walkFn); err != nil {
		return nil, err
	}
	return bundles, nil
}

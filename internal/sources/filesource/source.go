// Package filesource implements the §4.2.3 file source adapter: a
// recursively-scanned directory of JSON/YAML/TOML/raw label files, each
// producing one or more bundles, watched with fsnotify for changes.
package filesource

import (
	"context"
	"io/fs"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/autokuma/autokuma/internal/sources"
)

type Source struct {
	cfg Config
	log *logrus.Entry
}

func New(cfg Config, log *logrus.Entry) *Source {
	return &Source{cfg: cfg, log: log}
}

func (s *Source) Name() string { return "files" }

func (s *Source) Collect(ctx context.Context) ([]sources.LabelBundle, error) {
	return scan(s.cfg)
}

// Watch recursively watches cfg.Root with fsnotify and signals a change
// on any create/write/remove/rename event. Directories created after
// Watch starts are picked up and added to the watch set.
func (s *Source) Watch(ctx context.Context, notify chan<- sources.ChangeEvent) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.log.WithError(err).Error("file source: failed to start fsnotify watcher")
		return
	}
	defer watcher.Close()

	if err := addRecursive(watcher, s.cfg.Root); err != nil {
		s.log.WithError(err).Error("file source: failed to watch root directory")
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create != 0 {
				// best effort: a newly created directory needs its own watch.
				_ = watcher.Add(event.Name)
			}
			sendChange(notify, sources.ChangeEvent{Kind: sources.ChangeUpdate, Source: s.Name()})
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.log.WithError(err).Warn("file source: watcher error")
		}
	}
}

func sendChange(notify chan<- sources.ChangeEvent, ev sources.ChangeEvent) {
	select {
	case notify <- ev:
	default:
		select {
		case notify <- sources.ChangeEvent{Kind: sources.ChangeResync, Source: ev.Source}:
		default:
		}
	}
}

func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}

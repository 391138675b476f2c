package store

import (
	"context"
	"fmt"
	"regexp"

	"go.etcd.io/bbolt"

	"github.com/autokuma/autokuma/internal/errs"
	"github.com/autokuma/autokuma/internal/kuma"
)

const migrationDoneKey = "legacy_migration_completed"

// legacyIDPattern matches the AutoKuma ID the pre-identity-store
// AutoKuma embedded in a managed monitor's description, e.g.
// "autokuma_id:demo".
var legacyIDPattern = regexp.MustCompile(`autokuma_id:([A-Za-z0-9_\-/]+)`)

// MonitorLister is the remote capability MigrateLegacy needs: listing
// every monitor currently on the server.
type MonitorLister interface {
	List(ctx context.Context, kind kuma.Kind) ([]kuma.Fields, error)
}

// MigrateLegacy imports identity mappings for monitors the pre-store
// AutoKuma tagged and marked with an embedded autokuma_id, as described
// in SPEC_FULL.md's "Legacy migration" section. It runs once: a second
// call after a prior successful migration refuses with a ConfigError.
func (s *Store) MigrateLegacy(ctx context.Context, client MonitorLister, tagName string) (int, error) {
	done, err := s.migrationAlreadyDone()
	if err != nil {
		return 0, err
	}
	if done {
		return 0, &errs.ConfigError{Key: "migrate", Cause: fmt.Errorf("legacy migration already completed")}
	}

	monitors, err := client.List(ctx, kuma.KindMonitor)
	if err != nil {
		return 0, &errs.RemoteError{Message: fmt.Sprintf("listing monitors for migration: %v", err)}
	}

	count := 0
	for _, m := range monitors {
		if !hasTagNamed(m, tagName) {
			continue
		}
		desc, _ := m.GetString("description")
		match := legacyIDPattern.FindStringSubmatch(desc)
		if match == nil {
			continue
		}
		serverID := fieldsServerID(m)
		if serverID == "" {
			continue
		}
		if err := s.Put(kuma.KindMonitor, match[1], serverID); err != nil {
			return count, err
		}
		count++
	}

	if err := s.markMigrationDone(); err != nil {
		return count, err
	}
	if err := s.ClearLegacyState(); err != nil {
		return count, err
	}
	return count, nil
}

func hasTagNamed(m kuma.Fields, tagName string) bool {
	tags, ok := m["tags"].([]any)
	if !ok {
		return false
	}
	for _, t := range tags {
		ref, ok := t.(map[string]any)
		if !ok {
			continue
		}
		if name, _ := ref["name"].(string); name == tagName {
			return true
		}
	}
	return false
}

func fieldsServerID(m kuma.Fields) string {
	switch v := m["id"].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%d", int64(v))
	default:
		return ""
	}
}

func (s *Store) migrationAlreadyDone() (bool, error) {
	var done bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		done = tx.Bucket(bucketMeta).Get([]byte(migrationDoneKey)) != nil
		return nil
	})
	if err != nil {
		return false, &errs.StoreError{Op: "migrationAlreadyDone", Cause: err}
	}
	return done, nil
}

func (s *Store) markMigrationDone() error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMeta).Put([]byte(migrationDoneKey), []byte("done"))
	})
	if err != nil {
		return &errs.StoreError{Op: "markMigrationDone", Cause: err}
	}
	return nil
}

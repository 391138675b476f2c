// Package store implements the §4.4 identity store: a durable mapping
// from (kind, autokuma_id) to the Uptime Kuma server-assigned ID, plus
// the "missing since" bookkeeping that backs delete_grace_period.
package store

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/autokuma/autokuma/internal/errs"
	"github.com/autokuma/autokuma/internal/kuma"
)

var (
	bucketIdentity = []byte("identity")
	bucketMissing  = []byte("missing")
	bucketMeta     = []byte("meta")
)

const legacyMarkerKey = "legacy_tag_state_detected"

// Store is the embedded KV identity store rooted at a data directory.
type Store struct {
	db *bbolt.DB
}

// Open opens (creating if absent) the bbolt database at <dataDir>/identity/autokuma.db.
// It refuses to start if it finds a leftover legacy (tag-based) state
// marker and migrate is false (§4.4 "Durability").
func Open(dataDir string, migrate bool) (*Store, error) {
	path := filepath.Join(dataDir, "identity", "autokuma.db")
	if err := ensureDir(filepath.Dir(path)); err != nil {
		return nil, &errs.StoreError{Op: "open", Cause: err}
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, &errs.StoreError{Op: "open", Cause: err}
	}
	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.checkLegacyMarker(migrate); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketIdentity, bucketMissing, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return &errs.StoreError{Op: "init", Cause: err}
			}
		}
		return nil
	})
}

func (s *Store) checkLegacyMarker(migrate bool) error {
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket(bucketMeta).Get([]byte(legacyMarkerKey)) != nil
		return nil
	})
	if err != nil {
		return &errs.StoreError{Op: "checkLegacyMarker", Cause: err}
	}
	if found && !migrate {
		return &errs.StoreError{Op: "checkLegacyMarker", Cause: fmt.Errorf(
			"legacy tag-based state detected; set migrate=true to import it once")}
	}
	return nil
}

// MarkLegacyStateDetected records that the reconciler found leftover
// legacy (tag-based) state on the remote server. A later restart
// without migrate=true refuses to start until ClearLegacyState runs.
func (s *Store) MarkLegacyStateDetected() error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMeta).Put([]byte(legacyMarkerKey), []byte("detected"))
	})
	if err != nil {
		return &errs.StoreError{Op: "markLegacyStateDetected", Cause: err}
	}
	return nil
}

// ClearLegacyState records that the one-shot legacy import completed,
// so future restarts no longer require migrate=true.
func (s *Store) ClearLegacyState() error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMeta).Delete([]byte(legacyMarkerKey))
	})
	if err != nil {
		return &errs.StoreError{Op: "clearLegacyState", Cause: err}
	}
	return nil
}

func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return &errs.StoreError{Op: "close", Cause: err}
	}
	return nil
}

func key(kind kuma.Kind, autokumaID string) []byte {
	return []byte(string(kind) + "\x00" + autokumaID)
}

// record is the persisted value for one identity mapping.
type record struct {
	ServerID string `json:"server_id"`
}

// Get returns the server ID mapped to (kind, autokumaID), or "" if absent.
func (s *Store) Get(kind kuma.Kind, autokumaID string) (string, error) {
	var serverID string
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketIdentity).Get(key(kind, autokumaID))
		if raw == nil {
			return nil
		}
		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return err
		}
		serverID = rec.ServerID
		return nil
	})
	if err != nil {
		return "", &errs.StoreError{Op: "get", Cause: err}
	}
	return serverID, nil
}

// Put persists the mapping (kind, autokumaID) -> serverID.
func (s *Store) Put(kind kuma.Kind, autokumaID, serverID string) error {
	raw, err := json.Marshal(record{ServerID: serverID})
	if err != nil {
		return &errs.StoreError{Op: "put", Cause: err}
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketIdentity).Put(key(kind, autokumaID), raw)
	})
	if err != nil {
		return &errs.StoreError{Op: "put", Cause: err}
	}
	return nil
}

// Delete removes the mapping and any missing-since marker for it.
func (s *Store) Delete(kind kuma.Kind, autokumaID string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		k := key(kind, autokumaID)
		if err := tx.Bucket(bucketIdentity).Delete(k); err != nil {
			return err
		}
		return tx.Bucket(bucketMissing).Delete(k)
	})
	if err != nil {
		return &errs.StoreError{Op: "delete", Cause: err}
	}
	return nil
}

// Mapping is one (autokuma_id, server_id) pair returned by List.
type Mapping struct {
	AutokumaID string
	ServerID   string
}

// List returns every mapping for kind.
func (s *Store) List(kind kuma.Kind) ([]Mapping, error) {
	var out []Mapping
	prefix := []byte(string(kind) + "\x00")
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketIdentity).Cursor()
		for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
			var rec record
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			out = append(out, Mapping{
				AutokumaID: string(k[len(prefix):]),
				ServerID:   rec.ServerID,
			})
		}
		return nil
	})
	if err != nil {
		return nil, &errs.StoreError{Op: "list", Cause: err}
	}
	return out, nil
}

// GetMissingSince returns when (kind, autokumaID) was first observed
// missing from the remote server, or the zero time if it is not marked.
func (s *Store) GetMissingSince(kind kuma.Kind, autokumaID string) (time.Time, error) {
	var t time.Time
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketMissing).Get(key(kind, autokumaID))
		if raw == nil {
			return nil
		}
		return t.UnmarshalBinary(raw)
	})
	if err != nil {
		return time.Time{}, &errs.StoreError{Op: "getMissingSince", Cause: err}
	}
	return t, nil
}

// MarkMissing records that (kind, autokumaID) was absent from the
// remote server as of now, if it is not already marked.
func (s *Store) MarkMissing(kind kuma.Kind, autokumaID string, now time.Time) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMissing)
		k := key(kind, autokumaID)
		if b.Get(k) != nil {
			return nil
		}
		raw, err := now.MarshalBinary()
		if err != nil {
			return err
		}
		return b.Put(k, raw)
	})
	if err != nil {
		return &errs.StoreError{Op: "markMissing", Cause: err}
	}
	return nil
}

// ClearMissing removes the missing-since marker, e.g. when the entity
// reappears within delete_grace_period.
func (s *Store) ClearMissing(kind kuma.Kind, autokumaID string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMissing).Delete(key(kind, autokumaID))
	})
	if err != nil {
		return &errs.StoreError{Op: "clearMissing", Cause: err}
	}
	return nil
}

func hasPrefix(b, prefix []byte) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i := range prefix {
		if b[i] != prefix[i] {
			return false
		}
	}
	return true
}

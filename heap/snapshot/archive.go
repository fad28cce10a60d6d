package snapshot

import (
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var bucketSnapshots = []byte("snapshots")

// ErrNotFound indicates a missing archive entry.
var ErrNotFound = errors.New("snapshot: not found")

// Archive stores named snapshots in a bbolt database.
type Archive struct {
	db *bbolt.DB
}

// Entry summarizes one archived snapshot.
type Entry struct {
	Name string
	Size int // encoded bytes
	Meta Meta
}

// OpenArchive opens or creates the archive at path.
func OpenArchive(path string) (*Archive, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 3 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSnapshots)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing archive: %w", err)
	}
	return &Archive{db: db}, nil
}

// Close closes the database.
func (a *Archive) Close() error { return a.db.Close() }

// Put stores s under name, replacing any previous entry.
func (a *Archive) Put(name string, s *Snapshot, c Codec) error {
	if name == "" {
		return errors.New("snapshot: empty archive key")
	}
	data, err := s.Encode(c)
	if err != nil {
		return err
	}
	return a.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketSnapshots).Put([]byte(name), data); err != nil {
			return fmt.Errorf("storing snapshot %q: %w", name, err)
		}
		return nil
	})
}

// Get loads the snapshot stored under name.
func (a *Archive) Get(name string) (*Snapshot, error) {
	var s *Snapshot
	err := a.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketSnapshots).Get([]byte(name))
		if v == nil {
			return fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		// v is only valid inside the transaction; Decode copies it.
		var err error
		if s, err = Decode(v); err != nil {
			return fmt.Errorf("loading snapshot %q: %w", name, err)
		}
		return nil
	})
	return s, err
}

// Delete removes name from the archive.
func (a *Archive) Delete(name string) error {
	return a.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSnapshots)
		if b.Get([]byte(name)) == nil {
			return fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return b.Delete([]byte(name))
	})
}

// List returns every entry in key order.
func (a *Archive) List() ([]Entry, error) {
	var entries []Entry
	err := a.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketSnapshots).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			meta, err := DecodeMeta(v)
			if err != nil {
				return fmt.Errorf("entry %q: %w", k, err)
			}
			entries = append(entries, Entry{Name: string(k), Size: len(v), Meta: meta})
		}
		return nil
	})
	return entries, err
}

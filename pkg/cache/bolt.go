package cache

import (
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/quillnotes/quill/pkg/note"
)

// boltTier is the durable cache tier, one bbolt bucket of JSON-encoded
// results keyed by slot. It survives restarts; the memory tier is rebuilt
// from it on demand.
type boltTier struct {
	db *bolt.DB
}

var bucketResults = []byte("results")

func openBolt(path string) (*boltTier, error) {
	db, err := bolt.Open(path, 0o644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketResults)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &boltTier{db: db}, nil
}

func (t *boltTier) Close() error {
	return t.db.Close()
}

// slotKey flattens a slot into a bucket key. The digest is fixed-width hex,
// so appending the note ID keeps keys unambiguous.
func slotKey(s Slot) []byte {
	return []byte(s.Key + "/" + string(s.NoteID))
}

func (t *boltTier) Get(s Slot) (*Result, bool) {
	var data []byte
	t.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketResults).Get(slotKey(s))
		if v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if data == nil {
		return nil, false
	}
	r, err := decodeResult(data)
	if err != nil {
		// A corrupt entry is indistinguishable from a miss.
		return nil, false
	}
	return r, true
}

func (t *boltTier) Put(s Slot, r *Result) error {
	data, err := encodeResult(r)
	if err != nil {
		return err
	}
	return t.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketResults).Put(slotKey(s), data)
	})
}

func (t *boltTier) Delete(s Slot) error {
	return t.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketResults).Delete(slotKey(s))
	})
}

// DeleteNote removes every per-note entry belonging to the given note.
func (t *boltTier) DeleteNote(id note.ID) error {
	suffix := "/" + string(id)
	return t.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketResults)
		c := b.Cursor()
		var doomed [][]byte
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			if hasSuffix(k, suffix) {
				doomed = append(doomed, append([]byte(nil), k...))
			}
		}
		for _, k := range doomed {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// ClearAll wipes the tier by dropping and recreating the bucket.
func (t *boltTier) ClearAll() error {
	return t.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketResults); err != nil {
			return err
		}
		_, err := tx.CreateBucket(bucketResults)
		return err
	})
}

func hasSuffix(k []byte, suffix string) bool {
	return len(k) >= len(suffix) && string(k[len(k)-len(suffix):]) == suffix
}

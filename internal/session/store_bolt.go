package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

var sessionsBucket = []byte("Sessions")

// BoltStore keeps sessions in a local bbolt file, for single-node deployments.
type BoltStore struct {
	db *bbolt.DB
}

// OpenBoltStore opens (or creates) the file at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

func (b *BoltStore) Save(ctx context.Context, s Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(sessionsBucket)
		if bucket == nil {
			return fmt.Errorf("sessions bucket not found")
		}
		return bucket.Put([]byte(s.ID), raw)
	})
}

func (b *BoltStore) Find(ctx context.Context, id string) (Session, error) {
	var s Session
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(sessionsBucket)
		if bucket == nil {
			return fmt.Errorf("sessions bucket not found")
		}
		v := bucket.Get([]byte(id))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &s)
	})
	return s, err
}

func (b *BoltStore) Delete(ctx context.Context, id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(sessionsBucket)
		if bucket == nil {
			return fmt.Errorf("sessions bucket not found")
		}
		return bucket.Delete([]byte(id))
	})
}

// DeleteExpired removes every session past its expiry and returns their ids.
func (b *BoltStore) DeleteExpired(ctx context.Context, now time.Time) ([]string, error) {
	var ids []string
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(sessionsBucket)
		if bucket == nil {
			return fmt.Errorf("sessions bucket not found")
		}
		err := bucket.ForEach(func(k, v []byte) error {
			var s Session
			if err := json.Unmarshal(v, &s); err != nil {
				return err
			}
			if !now.Before(s.ExpiresAt) {
				ids = append(ids, string(k))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, id := range ids {
			if err := bucket.Delete([]byte(id)); err != nil {
				return err
			}
		}
		return nil
	})
	return ids, err
}

func (b *BoltStore) Close() error {
	return b.db.Close()
}

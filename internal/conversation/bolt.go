package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	bolt "go.etcd.io/bbolt"
)

var conversationsBucket = []byte("conversations")

// BoltStore keeps conversations in a local bbolt file so a restart does not
// drop technicians in the middle of a diagnosis.
type BoltStore struct {
	db *bolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure dir: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(conversationsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func boltKey(userID int64) []byte {
	return []byte(strconv.FormatInt(userID, 10))
}

func (s *BoltStore) Get(_ context.Context, userID int64) (Conversation, error) {
	var conv Conversation
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(conversationsBucket).Get(boltKey(userID))
		if raw == nil {
			return ErrNotFound
		}
		return json.Unmarshal(raw, &conv)
	})
	if err != nil {
		return Conversation{}, err
	}
	return conv, nil
}

func (s *BoltStore) Put(_ context.Context, conv Conversation) error {
	raw, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("marshal conversation: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(conversationsBucket).Put(boltKey(conv.UserID), raw)
	})
}

func (s *BoltStore) Delete(_ context.Context, userID int64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(conversationsBucket).Delete(boltKey(userID))
	})
}

func (s *BoltStore) Close() error { return s.db.Close() }

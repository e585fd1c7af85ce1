package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// BlobStore keeps opaque per-user blobs (the recent-quizzes list) in Redis.
type BlobStore struct {
	client *redis.Client
	prefix string
}

func NewBlobStore(client *redis.Client) *BlobStore {
	return &BlobStore{client: client, prefix: "blob:"}
}

func (s *BlobStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	blob, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return blob, true, nil
}

func (s *BlobStore) Set(ctx context.Context, key string, blob []byte) error {
	return s.client.Set(ctx, s.prefix+key, blob, 0).Err()
}

package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps profiles as JSON documents under chappy:profile:<name>.
type RedisStore struct {
	redis *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	if client == nil {
		panic("profile: redis client cannot be nil")
	}
	return &RedisStore{redis: client}
}

func (s *RedisStore) key(name string) string {
	return fmt.Sprintf("chappy:profile:%s", name)
}

func (s *RedisStore) Resolve(ctx context.Context, business string) (Resolution, error) {
	if !ValidName(business) {
		return Resolution{}, nil
	}
	for _, name := range candidates(business) {
		data, err := s.redis.Get(ctx, s.key(name)).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return Resolution{}, fmt.Errorf("profile: redis get %s: %w", name, err)
		}
		var p BusinessProfile
		if err := json.Unmarshal(data, &p); err != nil {
			return Resolution{}, fmt.Errorf("profile: decode %s: %w", name, err)
		}
		return found(name, normalize(name, &p)), nil
	}
	return Resolution{}, nil
}

func (s *RedisStore) Put(ctx context.Context, business string, p *BusinessProfile) error {
	if !ValidName(business) {
		return fmt.Errorf("%w: %q", ErrInvalidName, business)
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("profile: marshal: %w", err)
	}
	if err := s.redis.Set(ctx, s.key(business), data, 0).Err(); err != nil {
		return fmt.Errorf("profile: redis set %s: %w", business, err)
	}
	return nil
}

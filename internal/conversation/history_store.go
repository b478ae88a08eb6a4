package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultSessionTTL  = 24 * time.Hour
	maxSessionRetries  = 5
	sessionKeyTemplate = "chappy:session:%s"
)

type redisGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// ErrSessionContention is returned when optimistic retries are exhausted.
var ErrSessionContention = errors.New("conversation: session updated concurrently")

// RedisSessionStore persists sessions as JSON with an idle TTL. Writes use
// WATCH/MULTI so concurrent appends from other instances are never lost.
type RedisSessionStore struct {
	redis  *redis.Client
	tracer trace.Tracer
	ttl    time.Duration
}

func NewRedisSessionStore(client *redis.Client, ttl time.Duration, tracer trace.Tracer) *RedisSessionStore {
	if client == nil {
		panic("conversation: redis client cannot be nil")
	}
	if tracer == nil {
		tracer = otel.Tracer("chappy.internal.conversation.sessions")
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &RedisSessionStore{redis: client, tracer: tracer, ttl: ttl}
}

func sessionKey(id string) string {
	return fmt.Sprintf(sessionKeyTemplate, id)
}

func (s *RedisSessionStore) Get(ctx context.Context, id string) (*Session, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.session.get")
	defer span.End()

	sess, err := s.read(ctx, s.redis, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return sess, nil
}

func (s *RedisSessionStore) Update(ctx context.Context, id string, upd SessionUpdate) (*Session, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.session.update")
	defer span.End()

	sess, err := s.mutate(ctx, id, func(sess *Session) { sess.apply(upd) })
	if err != nil {
		span.RecordError(err)
	}
	return sess, err
}

func (s *RedisSessionStore) AppendTurn(ctx context.Context, id string, intent Intent, messages ...ChatMessage) (*Session, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.session.append")
	defer span.End()

	sess, err := s.mutate(ctx, id, func(sess *Session) {
		sess.History = append(sess.History, messages...)
		if intent != "" {
			sess.LastIntent = intent
		}
	})
	if err != nil {
		span.RecordError(err)
	}
	return sess, err
}

func (s *RedisSessionStore) mutate(ctx context.Context, id string, fn func(*Session)) (*Session, error) {
	key := sessionKey(id)
	var result *Session
	txf := func(tx *redis.Tx) error {
		sess, err := s.read(ctx, tx, id)
		if err != nil {
			return err
		}
		fn(sess)
		sess.UpdatedAt = time.Now().UTC()
		data, err := json.Marshal(sess)
		if err != nil {
			return fmt.Errorf("conversation: failed to marshal session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		if err == nil {
			result = sess
		}
		return err
	}

	for attempt := 0; attempt < maxSessionRetries; attempt++ {
		err := s.redis.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return nil, fmt.Errorf("conversation: failed to persist session: %w", err)
		}
	}
	return nil, ErrSessionContention
}

func (s *RedisSessionStore) read(ctx context.Context, c redisGetter, id string) (*Session, error) {
	data, err := c.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return newSession(id), nil
	}
	if err != nil {
		return nil, fmt.Errorf("conversation: failed to load session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("conversation: failed to decode session: %w", err)
	}
	if sess.History == nil {
		sess.History = []ChatMessage{}
	}
	return &sess, nil
}

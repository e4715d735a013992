package rdx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"snap2sell/db"
)

// Store keeps client state in Redis under "<prefix>:state:<key>" and announces every write
// on "<prefix>:state-events" so other processes sharing the profile can refresh.
type Store struct {
	Conn   *redis.Client
	prefix string
	origin string
	log    logrus.FieldLogger
}

// Connect dials Redis and verifies the connection.
func Connect(ctx context.Context, addr, password string, dbIndex int, prefix string, log logrus.FieldLogger) (*Store, error) {
	conn := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       dbIndex,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.Ping(ctx).Err(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return New(conn, prefix, log), nil
}

// New wraps an existing client.
func New(conn *redis.Client, prefix string, log logrus.FieldLogger) *Store {
	if prefix == "" {
		prefix = "snap2sell"
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Store{Conn: conn, prefix: prefix, origin: uuid.NewString(), log: log}
}

func (s *Store) key(k string) string { return s.prefix + ":state:" + k }

func (s *Store) channel() string { return s.prefix + ":state-events" }

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	v, err := s.Conn.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", db.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.Conn.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	s.announce(ctx, key)
	return nil
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}
	if err := s.Conn.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	for _, k := range keys {
		s.announce(ctx, k)
	}
	return nil
}

// announce is best effort: a lost notification only delays the next poll.
func (s *Store) announce(ctx context.Context, key string) {
	if err := s.Conn.Publish(ctx, s.channel(), s.origin+"|"+key).Err(); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("Redis announce error")
	}
}

func (s *Store) Close() error { return s.Conn.Close() }

// Watch subscribes to state events and yields keys written by other processes.
func (s *Store) Watch(ctx context.Context) (<-chan string, error) {
	sub := s.Conn.Subscribe(ctx, s.channel())
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}

	out := make(chan string, 16)
	go func() {
		defer close(out)
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				origin, key, found := strings.Cut(msg.Payload, "|")
				if !found || origin == s.origin {
					continue
				}
				select {
				case out <- key:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

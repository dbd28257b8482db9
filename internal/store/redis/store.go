// Package redis implements the identity and visitor document stores on
// Redis hashes. Documents are keyed by ID with a JSON-encoded embeddings
// field; insert-or-conflict and status flips run inside WATCH transactions
// so concurrent writers never interleave partial documents.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mvfy/verify/internal/domain"
)

const (
	identityPrefix = "identity:"
	visitorPrefix  = "visitor:"
	scanBatch      = 200
)

// Config contains Redis connection settings.
type Config struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB"       envDefault:"0"`
}

// NewClient creates a go-redis client and verifies connectivity.
// Returns nil if no address is configured (Redis disabled).
func NewClient(cfg Config) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}

// IdentityStore implements domain.IdentityStore on Redis.
type IdentityStore struct {
	client *redis.Client
}

// NewIdentityStore creates a Redis-backed identity store.
func NewIdentityStore(client *redis.Client) *IdentityStore {
	return &IdentityStore{client: client}
}

// Insert stores a new identity. Fails with ErrConflict if the ID exists.
func (s *IdentityStore) Insert(ctx context.Context, identity *domain.Identity) error {
	key := identityPrefix + identity.ID

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("exists check: %w", err)
		}
		if exists > 0 {
			return domain.ConflictError(identity.ID)
		}

		fields, err := identityFields(identity)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fields)
			return nil
		})
		return err
	}, key)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return err
		}
		return fmt.Errorf("insert identity %q: %w", identity.ID, err)
	}

	return nil
}

// Save atomically replaces the identity document.
func (s *IdentityStore) Save(ctx context.Context, identity *domain.Identity) error {
	key := identityPrefix + identity.ID

	fields, err := identityFields(identity)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, fields)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save identity %q: %w", identity.ID, err)
	}

	return nil
}

// Get retrieves an identity by ID. Fails with ErrNotFound.
func (s *IdentityStore) Get(ctx context.Context, id string) (*domain.Identity, error) {
	fields, err := s.client.HGetAll(ctx, identityPrefix+id).Result()
	if err != nil {
		return nil, fmt.Errorf("get identity %q: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, domain.NotFoundError(id)
	}

	return identityFromFields(id, fields)
}

// List returns identities filtered by status; empty status means all.
func (s *IdentityStore) List(ctx context.Context, status domain.Status) ([]*domain.Identity, error) {
	var out []*domain.Identity

	iter := s.client.Scan(ctx, 0, identityPrefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		fields, err := s.client.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, fmt.Errorf("list identities: %w", err)
		}
		if len(fields) == 0 {
			continue
		}

		identity, err := identityFromFields(key[len(identityPrefix):], fields)
		if err != nil {
			return nil, err
		}
		if status != "" && identity.Status != status {
			continue
		}
		out = append(out, identity)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}

	// SCAN order is arbitrary; order by ID like the memory store so the
	// adapters are interchangeable.
	sortIdentities(out)
	return out, nil
}

func sortIdentities(identities []*domain.Identity) {
	sort.Slice(identities, func(i, j int) bool { return identities[i].ID < identities[j].ID })
}

// VisitorStore implements domain.VisitorStore on Redis.
type VisitorStore struct {
	client *redis.Client
}

// NewVisitorStore creates a Redis-backed visitor store.
func NewVisitorStore(client *redis.Client) *VisitorStore {
	return &VisitorStore{client: client}
}

// Save upserts a visitor document keyed by author.
func (s *VisitorStore) Save(ctx context.Context, visitor *domain.Visitor) error {
	data, err := json.Marshal(visitor)
	if err != nil {
		return fmt.Errorf("marshal visitor %q: %w", visitor.Author, err)
	}

	if err := s.client.Set(ctx, visitorPrefix+visitor.Author, data, 0).Err(); err != nil {
		return fmt.Errorf("save visitor %q: %w", visitor.Author, err)
	}
	return nil
}

// List returns all tracked visitors.
func (s *VisitorStore) List(ctx context.Context) ([]*domain.Visitor, error) {
	var out []*domain.Visitor

	iter := s.client.Scan(ctx, 0, visitorPrefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		data, err := s.client.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("list visitors: %w", err)
		}

		var visitor domain.Visitor
		if err := json.Unmarshal(data, &visitor); err != nil {
			return nil, fmt.Errorf("decode visitor %q: %w", iter.Val(), err)
		}
		out = append(out, &visitor)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("list visitors: %w", err)
	}

	return out, nil
}

// Delete removes a visitor. Deleting an unknown author is a no-op.
func (s *VisitorStore) Delete(ctx context.Context, author string) error {
	if err := s.client.Del(ctx, visitorPrefix+author).Err(); err != nil {
		return fmt.Errorf("delete visitor %q: %w", author, err)
	}
	return nil
}

func identityFields(identity *domain.Identity) (map[string]any, error) {
	embeddings, err := json.Marshal(identity.Embeddings)
	if err != nil {
		return nil, fmt.Errorf("marshal embeddings for %q: %w", identity.ID, err)
	}

	return map[string]any{
		"display_name": identity.DisplayName,
		"status":       string(identity.Status),
		"embeddings":   string(embeddings),
		"created_at":   identity.CreatedAt.Format(time.RFC3339Nano),
		"updated_at":   identity.UpdatedAt.Format(time.RFC3339Nano),
	}, nil
}

func identityFromFields(id string, fields map[string]string) (*domain.Identity, error) {
	identity := &domain.Identity{
		ID:          id,
		DisplayName: fields["display_name"],
		Status:      domain.Status(fields["status"]),
	}

	if raw := fields["embeddings"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &identity.Embeddings); err != nil {
			return nil, fmt.Errorf("decode embeddings for %q: %w", id, err)
		}
	}

	var err error
	if identity.CreatedAt, err = time.Parse(time.RFC3339Nano, fields["created_at"]); err != nil {
		return nil, fmt.Errorf("decode created_at for %q: %w", id, err)
	}
	if identity.UpdatedAt, err = time.Parse(time.RFC3339Nano, fields["updated_at"]); err != nil {
		return nil, fmt.Errorf("decode updated_at for %q: %w", id, err)
	}

	return identity, nil
}

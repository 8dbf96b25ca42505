package cart

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// MemoryStorage keeps serialized carts in process memory
type MemoryStorage struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStorage returns an empty in-memory storage
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string][]byte)}
}

func (m *MemoryStorage) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryStorage) Set(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryStorage) Clear(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// FileStorage keeps one file per key inside a directory
type FileStorage struct {
	dir string
}

// NewFileStorage returns a storage rooted at dir, creating it if needed
func NewFileStorage(dir string) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cart directory: %w", err)
	}
	return &FileStorage{dir: dir}, nil
}

func (f *FileStorage) path(key string) string {
	return filepath.Join(f.dir, key+".json")
}

func (f *FileStorage) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cart file: %w", err)
	}
	return data, true, nil
}

func (f *FileStorage) Set(_ context.Context, key string, data []byte) error {
	tmp := f.path(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cart file: %w", err)
	}
	return os.Rename(tmp, f.path(key))
}

func (f *FileStorage) Clear(_ context.Context, key string) error {
	err := os.Remove(f.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove cart file: %w", err)
	}
	return nil
}

// RedisStorage keeps a session's cart in Redis. Keys are namespaced per session and
// expire after ttl of inactivity.
type RedisStorage struct {
	client  *redis.Client
	session string
	ttl     time.Duration
}

// NewRedisStorage returns a storage for one session
func NewRedisStorage(client *redis.Client, session string, ttl time.Duration) *RedisStorage {
	return &RedisStorage{client: client, session: session, ttl: ttl}
}

func (r *RedisStorage) key(key string) string {
	return "cart:" + r.session + ":" + key
}

func (r *RedisStorage) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cart from redis: %w", err)
	}
	return data, true, nil
}

func (r *RedisStorage) Set(ctx context.Context, key string, data []byte) error {
	if err := r.client.Set(ctx, r.key(key), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cart to redis: %w", err)
	}
	return nil
}

func (r *RedisStorage) Clear(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete cart from redis: %w", err)
	}
	return nil
}

// SessionStorage namespaces the keys of a shared storage by session id
type SessionStorage struct {
	inner   Storage
	session string
}

// ForSession scopes inner to one session
func ForSession(inner Storage, session string) *SessionStorage {
	return &SessionStorage{inner: inner, session: session}
}

func (s *SessionStorage) key(key string) string {
	return s.session + ":" + key
}

func (s *SessionStorage) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return s.inner.Get(ctx, s.key(key))
}

func (s *SessionStorage) Set(ctx context.Context, key string, data []byte) error {
	return s.inner.Set(ctx, s.key(key), data)
}

func (s *SessionStorage) Clear(ctx context.Context, key string) error {
	return s.inner.Clear(ctx, s.key(key))
}

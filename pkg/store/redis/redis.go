package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"account-grid/pkg/account"
	"account-grid/pkg/store"

	"github.com/redis/rueidis"
)

// RedisStore keeps accounts as JSON documents in a Redis list.
// List order is the natural order; a companion set holds account numbers.
type RedisStore struct {
	client     rueidis.Client
	name       string
	config     RedisStoreConfig
	listKey    string
	numbersKey string
}

type RedisStoreConfig struct {
	Name string
	// Addr is the Redis server address for single node mode.
	// Examples: "localhost:6379", "redis.example.com:6379"
	Addr string
	// ClusterAddrs enables cluster mode when set.
	// Both keys share a hash tag so the append script stays on one slot.
	ClusterAddrs []string
	Username     string
	Password     string
	DB           int
	KeyPrefix    string
	DialTimeout  time.Duration
	WriteTimeout time.Duration
}

func DefaultRedisStoreConfig() RedisStoreConfig {
	return RedisStoreConfig{
		Name:         "redis",
		Addr:         "localhost:6379",
		DB:           0,
		KeyPrefix:    "bbbank:",
		DialTimeout:  5 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// appendScript rejects the whole batch if any number is already present.
// ARGV alternates account number and JSON document.
var appendScript = rueidis.NewLuaScript(`
for i = 1, #ARGV, 2 do
  if redis.call('SISMEMBER', KEYS[2], ARGV[i]) == 1 then
    return redis.error_reply('DUPLICATE ' .. ARGV[i])
  end
end
for i = 1, #ARGV, 2 do
  redis.call('SADD', KEYS[2], ARGV[i])
  redis.call('RPUSH', KEYS[1], ARGV[i + 1])
end
return #ARGV / 2
`)

func NewRedisStore(config RedisStoreConfig) (*RedisStore, error) {
	if config.Name == "" {
		config.Name = "redis"
	}
	if config.DialTimeout <= 0 {
		config.DialTimeout = 5 * time.Second
	}

	var initAddress []string
	if len(config.ClusterAddrs) > 0 {
		initAddress = config.ClusterAddrs
	} else if config.Addr != "" {
		initAddress = []string{config.Addr}
	} else {
		return nil, fmt.Errorf("redis: no addresses configured (set Addr or ClusterAddrs)")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:      initAddress,
		Username:         config.Username,
		Password:         config.Password,
		SelectDB:         config.DB,
		ConnWriteTimeout: config.WriteTimeout,
		MaxFlushDelay:    100 * time.Microsecond,
	})
	if err != nil {
		return nil, fmt.Errorf("redis: failed to create client: %w: %w", store.ErrUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.DialTimeout)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: failed to ping server: %w: %w", store.ErrUnavailable, err)
	}

	return &RedisStore{
		client:     client,
		name:       config.Name,
		config:     config,
		listKey:    config.KeyPrefix + "{accounts}:list",
		numbersKey: config.KeyPrefix + "{accounts}:numbers",
	}, nil
}

// Count returns LLEN of the account list.
func (r *RedisStore) Count(ctx context.Context) (int, error) {
	n, err := r.client.Do(ctx, r.client.B().Llen().Key(r.listKey).Build()).AsInt64()
	if err != nil {
		return 0, r.wrap(err, "count")
	}
	return int(n), nil
}

// Slice returns LRANGE offset..offset+limit-1 decoded into accounts.
func (r *RedisStore) Slice(ctx context.Context, offset, limit int) ([]account.Account, error) {
	if err := store.ValidateWindow(offset, limit); err != nil {
		return nil, err
	}

	cmd := r.client.B().Lrange().Key(r.listKey).Start(int64(offset)).Stop(int64(offset + limit - 1)).Build()
	docs, err := r.client.Do(ctx, cmd).AsStrSlice()
	if err != nil {
		return nil, r.wrap(err, "slice")
	}

	out := make([]account.Account, 0, len(docs))
	for i, doc := range docs {
		var a account.Account
		if err := json.Unmarshal([]byte(doc), &a); err != nil {
			return nil, fmt.Errorf("redis slice: failed to unmarshal account at %d: %w", offset+i, err)
		}
		out = append(out, a)
	}
	return out, nil
}

// Append pushes accounts atomically; any duplicate number rejects the batch.
func (r *RedisStore) Append(ctx context.Context, accounts ...account.Account) error {
	if len(accounts) == 0 {
		return nil
	}
	if err := store.CheckBatch(accounts); err != nil {
		return err
	}

	args := make([]string, 0, len(accounts)*2)
	for _, a := range accounts {
		data, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("redis append: failed to marshal %s: %w", a.AccountNumber, err)
		}
		args = append(args, a.AccountNumber, string(data))
	}

	err := appendScript.Exec(ctx, r.client, []string{r.listKey, r.numbersKey}, args).Error()
	if err != nil {
		if number, ok := duplicateNumber(err); ok {
			return store.DuplicateError(number)
		}
		return r.wrap(err, "append")
	}
	return nil
}

// Reset deletes both keys. Used by seeding with --reset and by tests.
func (r *RedisStore) Reset(ctx context.Context) error {
	cmd := r.client.B().Del().Key(r.listKey, r.numbersKey).Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return r.wrap(err, "reset")
	}
	return nil
}

func (r *RedisStore) Ping(ctx context.Context) error {
	if err := r.client.Do(ctx, r.client.B().Ping().Build()).Error(); err != nil {
		return r.wrap(err, "ping")
	}
	return nil
}

func (r *RedisStore) Name() string {
	return r.name
}

func (r *RedisStore) Close() error {
	r.client.Close()
	return nil
}

// wrap tags connection-level failures as store.ErrUnavailable.
func (r *RedisStore) wrap(err error, operation string) error {
	if rueidis.IsRedisNil(err) {
		return nil
	}
	if store.IsUnavailable(err) || errors.Is(err, rueidis.ErrClosing) {
		return fmt.Errorf("redis %s: %w: %w", operation, store.ErrUnavailable, err)
	}
	return fmt.Errorf("redis %s: %w", operation, err)
}

func duplicateNumber(err error) (string, bool) {
	msg := err.Error()
	idx := strings.Index(msg, "DUPLICATE ")
	if idx < 0 {
		return "", false
	}
	return strings.TrimSpace(msg[idx+len("DUPLICATE "):]), true
}

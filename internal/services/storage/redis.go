package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"github.com/storefinder-go/internal/config"
	"github.com/storefinder-go/internal/models"
)

const (
	storesKey      = "stores"
	sessionPattern = "session:*"
)

// RedisStorage implements storage using Redis.
// Stores live in one hash, each store's inventory in its own hash and
// chat sessions in plain keys that expire after the session TTL.
type RedisStorage struct {
	client     *redis.Client
	sessionTTL time.Duration
	logger     *logrus.Logger
}

func NewRedisStorage(cfg *config.Config, logger *logrus.Logger) (*RedisStorage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Storage.Redis.Addr,
		Password: cfg.Storage.Redis.Password,
		DB:       cfg.Storage.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStorage{
		client:     client,
		sessionTTL: cfg.Chat.SessionTTL,
		logger:     logger,
	}, nil
}

// Close closes the underlying client
func (r *RedisStorage) Close() error {
	return r.client.Close()
}

func inventoryHashKey(storeID string) string {
	return fmt.Sprintf("inventory:%s", storeID)
}

func sessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s", sessionID)
}

func (r *RedisStorage) ListStores(ctx context.Context) ([]models.Store, error) {
	values, err := r.client.HVals(ctx, storesKey).Result()
	if err != nil {
		return nil, err
	}

	stores := make([]models.Store, 0, len(values))
	for _, data := range values {
		var store models.Store
		if err := json.Unmarshal([]byte(data), &store); err != nil {
			r.logger.WithError(err).Warn("Skipping malformed store record")
			continue
		}
		stores = append(stores, store)
	}
	return stores, nil
}

func (r *RedisStorage) GetStore(ctx context.Context, storeID string) (*models.Store, error) {
	data, err := r.client.HGet(ctx, storesKey, storeID).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var store models.Store
	if err := json.Unmarshal([]byte(data), &store); err != nil {
		return nil, err
	}
	return &store, nil
}

func (r *RedisStorage) SaveStore(ctx context.Context, store *models.Store) error {
	data, err := json.Marshal(store)
	if err != nil {
		return err
	}
	return r.client.HSet(ctx, storesKey, store.ID, data).Err()
}

func (r *RedisStorage) DeleteStore(ctx context.Context, storeID string) error {
	pipe := r.client.TxPipeline()
	pipe.HDel(ctx, storesKey, storeID)
	pipe.Del(ctx, inventoryHashKey(storeID))
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisStorage) ListInventory(ctx context.Context, storeID string) ([]models.InventoryItem, error) {
	values, err := r.client.HVals(ctx, inventoryHashKey(storeID)).Result()
	if err != nil {
		return nil, err
	}

	items := make([]models.InventoryItem, 0, len(values))
	for _, data := range values {
		var item models.InventoryItem
		if err := json.Unmarshal([]byte(data), &item); err != nil {
			r.logger.WithError(err).WithField("store_id", storeID).Warn("Skipping malformed inventory record")
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *RedisStorage) GetInventoryItem(ctx context.Context, storeID, itemID string) (*models.InventoryItem, error) {
	data, err := r.client.HGet(ctx, inventoryHashKey(storeID), itemID).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var item models.InventoryItem
	if err := json.Unmarshal([]byte(data), &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *RedisStorage) SaveInventoryItem(ctx context.Context, item *models.InventoryItem) error {
	data, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return r.client.HSet(ctx, inventoryHashKey(item.StoreID), item.ID, data).Err()
}

func (r *RedisStorage) DeleteInventoryItem(ctx context.Context, storeID, itemID string) error {
	return r.client.HDel(ctx, inventoryHashKey(storeID), itemID).Err()
}

func (r *RedisStorage) GetSession(ctx context.Context, sessionID string) (*models.ChatSession, error) {
	data, err := r.client.Get(ctx, sessionKey(sessionID)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var session models.ChatSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *RedisStorage) SaveSession(ctx context.Context, session *models.ChatSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, sessionKey(session.ID), data, r.sessionTTL).Err()
}

func (r *RedisStorage) DeleteSession(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, sessionKey(sessionID)).Err()
}

func (r *RedisStorage) CountSessions(ctx context.Context) (int, error) {
	count := 0
	iter := r.client.Scan(ctx, 0, sessionPattern, 100).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *RedisStorage) CleanupExpiredSessions(ctx context.Context, expiration time.Duration) error {
	// Redis handles expiration automatically
	return nil
}

package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"github.com/storefinder-go/internal/config"
	"github.com/storefinder-go/internal/models"
)

// MemoryStorage implements storage using in-memory cache
type MemoryStorage struct {
	stores    *cache.Cache
	inventory *cache.Cache
	sessions  *cache.Cache
	logger    *logrus.Logger
}

func NewMemoryStorage(cfg *config.Config, logger *logrus.Logger) *MemoryStorage {
	sessionTTL := cfg.Chat.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = cfg.Storage.Memory.DefaultExpiration
	}
	cleanup := cfg.Storage.Memory.CleanupInterval
	if cleanup <= 0 {
		cleanup = 10 * time.Minute
	}

	return &MemoryStorage{
		stores:    cache.New(cache.NoExpiration, cache.NoExpiration),
		inventory: cache.New(cache.NoExpiration, cache.NoExpiration),
		sessions:  cache.New(sessionTTL, cleanup),
		logger:    logger,
	}
}

func inventoryKey(storeID, itemID string) string {
	return fmt.Sprintf("%s:%s", storeID, itemID)
}

func (m *MemoryStorage) ListStores(ctx context.Context) ([]models.Store, error) {
	items := m.stores.Items()
	stores := make([]models.Store, 0, len(items))
	for _, item := range items {
		stores = append(stores, *item.Object.(*models.Store))
	}
	return stores, nil
}

func (m *MemoryStorage) GetStore(ctx context.Context, storeID string) (*models.Store, error) {
	if val, found := m.stores.Get(storeID); found {
		store := *val.(*models.Store)
		return &store, nil
	}
	return nil, ErrNotFound
}

func (m *MemoryStorage) SaveStore(ctx context.Context, store *models.Store) error {
	stored := *store
	m.stores.Set(store.ID, &stored, cache.NoExpiration)
	return nil
}

func (m *MemoryStorage) DeleteStore(ctx context.Context, storeID string) error {
	m.stores.Delete(storeID)
	prefix := storeID + ":"
	for key := range m.inventory.Items() {
		if strings.HasPrefix(key, prefix) {
			m.inventory.Delete(key)
		}
	}
	return nil
}

func (m *MemoryStorage) ListInventory(ctx context.Context, storeID string) ([]models.InventoryItem, error) {
	prefix := storeID + ":"
	result := []models.InventoryItem{}
	for key, item := range m.inventory.Items() {
		if strings.HasPrefix(key, prefix) {
			result = append(result, *item.Object.(*models.InventoryItem))
		}
	}
	return result, nil
}

func (m *MemoryStorage) GetInventoryItem(ctx context.Context, storeID, itemID string) (*models.InventoryItem, error) {
	if val, found := m.inventory.Get(inventoryKey(storeID, itemID)); found {
		item := *val.(*models.InventoryItem)
		return &item, nil
	}
	return nil, ErrNotFound
}

func (m *MemoryStorage) SaveInventoryItem(ctx context.Context, item *models.InventoryItem) error {
	stored := *item
	m.inventory.Set(inventoryKey(item.StoreID, item.ID), &stored, cache.NoExpiration)
	return nil
}

func (m *MemoryStorage) DeleteInventoryItem(ctx context.Context, storeID, itemID string) error {
	m.inventory.Delete(inventoryKey(storeID, itemID))
	return nil
}

func (m *MemoryStorage) GetSession(ctx context.Context, sessionID string) (*models.ChatSession, error) {
	if val, found := m.sessions.Get(sessionID); found {
		session := *val.(*models.ChatSession)
		session.Messages = copyMessages(session.Messages)
		return &session, nil
	}
	return nil, ErrNotFound
}

func (m *MemoryStorage) SaveSession(ctx context.Context, session *models.ChatSession) error {
	stored := *session
	stored.Messages = copyMessages(session.Messages)
	m.sessions.SetDefault(session.ID, &stored)
	return nil
}

func (m *MemoryStorage) DeleteSession(ctx context.Context, sessionID string) error {
	m.sessions.Delete(sessionID)
	return nil
}

func (m *MemoryStorage) CountSessions(ctx context.Context) (int, error) {
	return m.sessions.ItemCount(), nil
}

func (m *MemoryStorage) CleanupExpiredSessions(ctx context.Context, expiration time.Duration) error {
	// go-cache expires entries on its own janitor; this just forces a pass
	m.sessions.DeleteExpired()
	return nil
}

func copyMessages(messages []models.Message) []models.Message {
	out := make([]models.Message, len(messages))
	copy(out, messages)
	return out
}

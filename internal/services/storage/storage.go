package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/storefinder-go/internal/config"
	"github.com/storefinder-go/internal/middleware"
	"github.com/storefinder-go/internal/models"
)

// ErrNotFound is returned when a store, item or session does not exist.
var ErrNotFound = errors.New("not found")

// Storage interface defines storage operations
type Storage interface {
	// Store operations
	ListStores(ctx context.Context) ([]models.Store, error)
	GetStore(ctx context.Context, storeID string) (*models.Store, error)
	SaveStore(ctx context.Context, store *models.Store) error
	DeleteStore(ctx context.Context, storeID string) error

	// Inventory operations
	ListInventory(ctx context.Context, storeID string) ([]models.InventoryItem, error)
	GetInventoryItem(ctx context.Context, storeID, itemID string) (*models.InventoryItem, error)
	SaveInventoryItem(ctx context.Context, item *models.InventoryItem) error
	DeleteInventoryItem(ctx context.Context, storeID, itemID string) error

	// Chat session operations
	GetSession(ctx context.Context, sessionID string) (*models.ChatSession, error)
	SaveSession(ctx context.Context, session *models.ChatSession) error
	DeleteSession(ctx context.Context, sessionID string) error
	CountSessions(ctx context.Context) (int, error)

	// Cleanup operations
	CleanupExpiredSessions(ctx context.Context, expiration time.Duration) error
}

// Manager wraps a storage backend with id assignment, ordering and metrics
type Manager struct {
	storage     Storage
	logger      *logrus.Logger
	metrics     *middleware.Metrics
	sessionTTL  time.Duration
	redisClient *redis.Client
	now         func() time.Time
}

// NewManager creates a new storage manager
func NewManager(cfg *config.Config, metrics *middleware.Metrics, logger *logrus.Logger) (*Manager, error) {
	manager := &Manager{
		logger:     logger,
		metrics:    metrics,
		sessionTTL: cfg.Chat.SessionTTL,
		now:        time.Now,
	}

	switch cfg.Storage.Type {
	case "redis":
		redisStorage, err := NewRedisStorage(cfg, logger)
		if err != nil {
			return nil, err
		}
		manager.storage = redisStorage
		manager.redisClient = redisStorage.client
	case "memory":
		manager.storage = NewMemoryStorage(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}

	return manager, nil
}

// NewManagerWithStorage wraps an existing backend
func NewManagerWithStorage(backend Storage, sessionTTL time.Duration, metrics *middleware.Metrics, logger *logrus.Logger) *Manager {
	return &Manager{
		storage:    backend,
		logger:     logger,
		metrics:    metrics,
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

// GetRedisClient returns the Redis client if available
func (m *Manager) GetRedisClient() *redis.Client {
	return m.redisClient
}

func (m *Manager) observe(operation string, start time.Time, errp *error) {
	if m.metrics == nil {
		return
	}
	status := "success"
	if err := *errp; err != nil && !errors.Is(err, ErrNotFound) {
		status = "error"
	}
	m.metrics.RecordStorageOperation(operation, status, time.Since(start))
}

// ListStores returns every store ordered by name
func (m *Manager) ListStores(ctx context.Context) (stores []models.Store, err error) {
	defer m.observe("list_stores", time.Now(), &err)

	stores, err = m.storage.ListStores(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing stores: %w", err)
	}
	sortStoresByName(stores)
	return stores, nil
}

// GetStore returns a single store or ErrNotFound
func (m *Manager) GetStore(ctx context.Context, storeID string) (store *models.Store, err error) {
	defer m.observe("get_store", time.Now(), &err)

	if storeID == "" {
		return nil, ErrNotFound
	}
	return m.storage.GetStore(ctx, storeID)
}

// CreateStore assigns an id and timestamps and saves the store
func (m *Manager) CreateStore(ctx context.Context, store *models.Store) (err error) {
	defer m.observe("create_store", time.Now(), &err)

	now := m.now()
	if store.ID == "" {
		store.ID = uuid.NewString()
	}
	store.CreatedAt = now
	store.UpdatedAt = now

	if err := m.storage.SaveStore(ctx, store); err != nil {
		return fmt.Errorf("creating store: %w", err)
	}
	return nil
}

// UpdateStore overwrites an existing store, keeping its owner and creation time
func (m *Manager) UpdateStore(ctx context.Context, store *models.Store) (err error) {
	defer m.observe("update_store", time.Now(), &err)

	existing, err := m.storage.GetStore(ctx, store.ID)
	if err != nil {
		return err
	}
	store.OwnerID = existing.OwnerID
	store.CreatedAt = existing.CreatedAt
	store.UpdatedAt = m.now()

	if err := m.storage.SaveStore(ctx, store); err != nil {
		return fmt.Errorf("updating store: %w", err)
	}
	return nil
}

// DeleteStore removes a store and its inventory
func (m *Manager) DeleteStore(ctx context.Context, storeID string) (err error) {
	defer m.observe("delete_store", time.Now(), &err)

	if _, err := m.storage.GetStore(ctx, storeID); err != nil {
		return err
	}
	return m.storage.DeleteStore(ctx, storeID)
}

// ListInventory returns a store's items, newest first, optionally filtered
// by a case-insensitive name substring and capped at filter.Limit.
func (m *Manager) ListInventory(ctx context.Context, storeID string, filter models.InventoryFilter) (items []models.InventoryItem, err error) {
	defer m.observe("list_inventory", time.Now(), &err)

	items, err = m.storage.ListInventory(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("listing inventory: %w", err)
	}
	return applyInventoryFilter(items, filter), nil
}

// GetInventoryItem returns one item of a store or ErrNotFound
func (m *Manager) GetInventoryItem(ctx context.Context, storeID, itemID string) (item *models.InventoryItem, err error) {
	defer m.observe("get_inventory_item", time.Now(), &err)
	return m.storage.GetInventoryItem(ctx, storeID, itemID)
}

// CreateInventoryItem assigns an id and timestamps and saves the item
func (m *Manager) CreateInventoryItem(ctx context.Context, item *models.InventoryItem) (err error) {
	defer m.observe("create_inventory_item", time.Now(), &err)

	if _, err := m.storage.GetStore(ctx, item.StoreID); err != nil {
		return err
	}

	now := m.now()
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.Category == "" {
		item.Category = "general"
	}
	item.CreatedAt = now
	item.UpdatedAt = now

	if err := m.storage.SaveInventoryItem(ctx, item); err != nil {
		return fmt.Errorf("creating inventory item: %w", err)
	}
	return nil
}

// UpdateInventoryItem overwrites an item that belongs to item.StoreID
func (m *Manager) UpdateInventoryItem(ctx context.Context, item *models.InventoryItem) (err error) {
	defer m.observe("update_inventory_item", time.Now(), &err)

	existing, err := m.storage.GetInventoryItem(ctx, item.StoreID, item.ID)
	if err != nil {
		return err
	}
	item.CreatedAt = existing.CreatedAt
	item.UpdatedAt = m.now()

	if err := m.storage.SaveInventoryItem(ctx, item); err != nil {
		return fmt.Errorf("updating inventory item: %w", err)
	}
	return nil
}

// DeleteInventoryItem removes an item from a store
func (m *Manager) DeleteInventoryItem(ctx context.Context, storeID, itemID string) (err error) {
	defer m.observe("delete_inventory_item", time.Now(), &err)

	if _, err := m.storage.GetInventoryItem(ctx, storeID, itemID); err != nil {
		return err
	}
	return m.storage.DeleteInventoryItem(ctx, storeID, itemID)
}

// CreateSession starts a chat session with an immutable context
func (m *Manager) CreateSession(ctx context.Context, convCtx models.ConversationContext) (*models.ChatSession, error) {
	now := m.now()
	session := &models.ChatSession{
		ID:           uuid.NewString(),
		Context:      convCtx,
		Messages:     []models.Message{},
		CreatedAt:    now,
		LastActivity: now,
	}
	if err := m.storage.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	return session, nil
}

func (m *Manager) GetSession(ctx context.Context, sessionID string) (*models.ChatSession, error) {
	return m.storage.GetSession(ctx, sessionID)
}

func (m *Manager) SaveSession(ctx context.Context, session *models.ChatSession) error {
	session.LastActivity = m.now()
	return m.storage.SaveSession(ctx, session)
}

func (m *Manager) DeleteSession(ctx context.Context, sessionID string) error {
	return m.storage.DeleteSession(ctx, sessionID)
}

func (m *Manager) CountSessions(ctx context.Context) (int, error) {
	return m.storage.CountSessions(ctx)
}

// CleanupExpiredSessions drops sessions idle for longer than the session TTL
func (m *Manager) CleanupExpiredSessions(ctx context.Context) error {
	return m.storage.CleanupExpiredSessions(ctx, m.sessionTTL)
}

func sortStoresByName(stores []models.Store) {
	sort.SliceStable(stores, func(i, j int) bool {
		return strings.ToLower(stores[i].Name) < strings.ToLower(stores[j].Name)
	})
}

func applyInventoryFilter(items []models.InventoryItem, filter models.InventoryFilter) []models.InventoryItem {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})

	needle := strings.ToLower(strings.TrimSpace(filter.NameContains))
	result := make([]models.InventoryItem, 0, len(items))
	for _, item := range items {
		if needle != "" && !strings.Contains(strings.ToLower(item.Name), needle) {
			continue
		}
		result = append(result, item)
		if filter.Limit > 0 && len(result) >= filter.Limit {
			break
		}
	}
	return result
}

package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"github.com/storefinder-go/internal/config"
	"github.com/storefinder-go/internal/models"
)

// Service caches generated answers per store and question
type Service interface {
	Get(ctx context.Context, storeID, question string) (string, bool)
	Set(ctx context.Context, storeID, question, answer string) error
	Invalidate(ctx context.Context, storeID string)
	Clear(ctx context.Context) error
}

// Cache implements Service on go-cache
type Cache struct {
	enabled bool
	cache   *cache.Cache
	logger  *logrus.Logger
	maxSize int
}

// NewCache creates a new cache service
func NewCache(cfg *config.Config, logger *logrus.Logger) Service {
	if !cfg.Cache.Enabled {
		return &Cache{enabled: false, logger: logger}
	}

	return &Cache{
		enabled: true,
		cache:   cache.New(cfg.Cache.TTL, cfg.Cache.TTL*2),
		logger:  logger,
		maxSize: cfg.Cache.MaxSize,
	}
}

// Get retrieves a cached answer
func (c *Cache) Get(ctx context.Context, storeID, question string) (string, bool) {
	if !c.enabled {
		return "", false
	}

	val, found := c.cache.Get(c.generateKey(storeID, question))
	if !found {
		return "", false
	}
	entry := val.(*models.CacheEntry)
	c.logger.WithFields(logrus.Fields{
		"store_id": storeID,
		"age":      time.Since(entry.CreatedAt),
	}).Debug("Cache hit")
	return entry.Answer, true
}

// Set stores an answer
func (c *Cache) Set(ctx context.Context, storeID, question, answer string) error {
	if !c.enabled {
		return nil
	}

	if c.maxSize > 0 && c.cache.ItemCount() >= c.maxSize {
		c.logger.Warn("Cache size limit reached, clearing old entries")
		c.cache.DeleteExpired()
		if c.cache.ItemCount() >= c.maxSize {
			return fmt.Errorf("cache full: %d entries", c.cache.ItemCount())
		}
	}

	c.cache.SetDefault(c.generateKey(storeID, question), &models.CacheEntry{
		Question:  question,
		Answer:    answer,
		StoreID:   storeID,
		CreatedAt: time.Now(),
	})
	c.logger.WithField("store_id", storeID).Debug("Response cached")
	return nil
}

// Invalidate drops every answer cached for a store. It runs after the
// store or its inventory changes so answers never outlive the data.
func (c *Cache) Invalidate(ctx context.Context, storeID string) {
	if !c.enabled {
		return
	}

	removed := 0
	for key, item := range c.cache.Items() {
		if entry, ok := item.Object.(*models.CacheEntry); ok && entry.StoreID == storeID {
			c.cache.Delete(key)
			removed++
		}
	}
	if removed > 0 {
		c.logger.WithFields(logrus.Fields{
			"store_id": storeID,
			"removed":  removed,
		}).Debug("Cache invalidated")
	}
}

// Clear removes all cached entries
func (c *Cache) Clear(ctx context.Context) error {
	if !c.enabled {
		return nil
	}

	c.cache.Flush()
	c.logger.Info("Cache cleared")
	return nil
}

func (c *Cache) generateKey(storeID, question string) string {
	data := fmt.Sprintf("%s:%s", storeID, strings.ToLower(strings.TrimSpace(question)))
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

package models

import (
	"time"
)

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// User roles carried in ConversationContext.UserRole
const (
	UserRoleCustomer   = "user"
	UserRoleStoreOwner = "store_owner"
)

// Message represents a chat message
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversationContext is fixed for the lifetime of a chat session.
type ConversationContext struct {
	StoreID         string `json:"store_id,omitempty"`
	UserID          string `json:"user_id,omitempty"`
	UserRole        string `json:"user_role,omitempty"`
	IsAuthenticated bool   `json:"is_authenticated"`
}

// ChatSession holds a widget conversation for display
type ChatSession struct {
	ID           string              `json:"id"`
	Context      ConversationContext `json:"context"`
	Messages     []Message           `json:"messages"`
	CreatedAt    time.Time           `json:"created_at"`
	LastActivity time.Time           `json:"last_activity"`
}

// Store represents a retail store listing
type Store struct {
	ID              string    `json:"id"`
	OwnerID         string    `json:"owner_id"`
	Name            string    `json:"name"`
	Address         string    `json:"address"`
	Phone           string    `json:"phone,omitempty"`
	Latitude        float64   `json:"latitude"`
	Longitude       float64   `json:"longitude"`
	OpeningHours    string    `json:"opening_hours"`
	NextOpeningTime string    `json:"next_opening_time"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// InventoryItem represents a stock record of a store
type InventoryItem struct {
	ID          string    `json:"id"`
	StoreID     string    `json:"store_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	SKU         string    `json:"sku,omitempty"`
	Quantity    int       `json:"quantity"`
	Price       float64   `json:"price"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// InventoryFilter narrows an inventory read
type InventoryFilter struct {
	NameContains string
	Limit        int
}

// CacheEntry represents a cached response
type CacheEntry struct {
	Question  string
	Answer    string
	StoreID   string
	CreatedAt time.Time
}

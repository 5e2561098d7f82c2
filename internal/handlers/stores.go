package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/storefinder-go/internal/i18n"
	"github.com/storefinder-go/internal/models"
	"github.com/storefinder-go/internal/validation"
)

type storeRequest struct {
	Name            string  `json:"name"`
	Address         string  `json:"address"`
	Phone           string  `json:"phone"`
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
	OpeningHours    string  `json:"opening_hours"`
	NextOpeningTime string  `json:"next_opening_time"`
}

func (req storeRequest) toStore() *models.Store {
	return &models.Store{
		Name:            strings.TrimSpace(req.Name),
		Address:         strings.TrimSpace(req.Address),
		Phone:           strings.TrimSpace(req.Phone),
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		OpeningHours:    strings.TrimSpace(req.OpeningHours),
		NextOpeningTime: strings.TrimSpace(req.NextOpeningTime),
	}
}

type inventoryRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	SKU         string   `json:"sku"`
	Quantity    *int     `json:"quantity"`
	Price       *float64 `json:"price"`
}

func (req inventoryRequest) toItem(storeID string) (*models.InventoryItem, error) {
	if err := validation.InventoryItem(req.Name, req.Quantity, req.Price); err != nil {
		return nil, err
	}
	return &models.InventoryItem{
		StoreID:     storeID,
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Category:    strings.TrimSpace(req.Category),
		SKU:         strings.TrimSpace(req.SKU),
		Quantity:    *req.Quantity,
		Price:       *req.Price,
	}, nil
}

// ListStores returns all stores ordered by name
func (h *Handler) ListStores(w http.ResponseWriter, r *http.Request) {
	stores, err := h.storage.ListStores(r.Context())
	if err != nil {
		h.writeStorageError(w, r, err, i18n.MsgNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"stores": stores})
}

// GetStore returns one store
func (h *Handler) GetStore(w http.ResponseWriter, r *http.Request) {
	store, err := h.storage.GetStore(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeStorageError(w, r, err, i18n.MsgStoreNotFound)
		return
	}
	writeJSON(w, http.StatusOK, store)
}

// CreateStore registers a store owned by the calling store owner
func (h *Handler) CreateStore(w http.ResponseWriter, r *http.Request) {
	caller := callerIdentity(r)
	if !caller.isStoreOwner() {
		h.writeError(w, r, http.StatusForbidden, i18n.MsgOwnerRequired, nil)
		return
	}

	var req storeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, i18n.MsgInvalidRequest, nil)
		return
	}

	store := req.toStore()
	if err := validation.Store(store); err != nil {
		h.writeStorageError(w, r, err, i18n.MsgStoreNotFound)
		return
	}
	store.OwnerID = caller.UserID

	if err := h.storage.CreateStore(r.Context(), store); err != nil {
		h.writeStorageError(w, r, err, i18n.MsgStoreNotFound)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"store_id": store.ID,
		"owner_id": store.OwnerID,
	}).Info("Store created")
	writeJSON(w, http.StatusCreated, store)
}

// UpdateStore replaces the editable fields of a store
func (h *Handler) UpdateStore(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.ownedStore(w, r)
	if !ok {
		return
	}

	var req storeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, i18n.MsgInvalidRequest, nil)
		return
	}

	store := req.toStore()
	if err := validation.Store(store); err != nil {
		h.writeStorageError(w, r, err, i18n.MsgStoreNotFound)
		return
	}
	store.ID = existing.ID

	if err := h.storage.UpdateStore(r.Context(), store); err != nil {
		h.writeStorageError(w, r, err, i18n.MsgStoreNotFound)
		return
	}
	h.invalidate(r, store.ID)
	writeJSON(w, http.StatusOK, store)
}

// DeleteStore removes a store and its inventory
func (h *Handler) DeleteStore(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.ownedStore(w, r)
	if !ok {
		return
	}

	if err := h.storage.DeleteStore(r.Context(), existing.ID); err != nil {
		h.writeStorageError(w, r, err, i18n.MsgStoreNotFound)
		return
	}
	h.invalidate(r, existing.ID)

	h.logger.WithField("store_id", existing.ID).Info("Store deleted")
	w.WriteHeader(http.StatusNoContent)
}

// ListInventory returns a store's items, newest first
func (h *Handler) ListInventory(w http.ResponseWriter, r *http.Request) {
	storeID := mux.Vars(r)["id"]
	if _, err := h.storage.GetStore(r.Context(), storeID); err != nil {
		h.writeStorageError(w, r, err, i18n.MsgStoreNotFound)
		return
	}

	items, err := h.storage.ListInventory(r.Context(), storeID, models.InventoryFilter{
		NameContains: r.URL.Query().Get("q"),
	})
	if err != nil {
		h.writeStorageError(w, r, err, i18n.MsgStoreNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

// CreateInventoryItem adds an item to the caller's store
func (h *Handler) CreateInventoryItem(w http.ResponseWriter, r *http.Request) {
	store, ok := h.ownedStore(w, r)
	if !ok {
		return
	}

	var req inventoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, i18n.MsgInvalidRequest, nil)
		return
	}
	item, err := req.toItem(store.ID)
	if err != nil {
		h.writeStorageError(w, r, err, i18n.MsgItemNotFound)
		return
	}

	if err := h.storage.CreateInventoryItem(r.Context(), item); err != nil {
		h.writeStorageError(w, r, err, i18n.MsgStoreNotFound)
		return
	}
	h.invalidate(r, store.ID)
	writeJSON(w, http.StatusCreated, item)
}

// UpdateInventoryItem replaces an item of the caller's store
func (h *Handler) UpdateInventoryItem(w http.ResponseWriter, r *http.Request) {
	store, ok := h.ownedStore(w, r)
	if !ok {
		return
	}

	var req inventoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, i18n.MsgInvalidRequest, nil)
		return
	}
	item, err := req.toItem(store.ID)
	if err != nil {
		h.writeStorageError(w, r, err, i18n.MsgItemNotFound)
		return
	}
	item.ID = mux.Vars(r)["itemID"]

	if err := h.storage.UpdateInventoryItem(r.Context(), item); err != nil {
		h.writeStorageError(w, r, err, i18n.MsgItemNotFound)
		return
	}
	h.invalidate(r, store.ID)
	writeJSON(w, http.StatusOK, item)
}

// DeleteInventoryItem removes an item of the caller's store
func (h *Handler) DeleteInventoryItem(w http.ResponseWriter, r *http.Request) {
	store, ok := h.ownedStore(w, r)
	if !ok {
		return
	}

	if err := h.storage.DeleteInventoryItem(r.Context(), store.ID, mux.Vars(r)["itemID"]); err != nil {
		h.writeStorageError(w, r, err, i18n.MsgItemNotFound)
		return
	}
	h.invalidate(r, store.ID)
	w.WriteHeader(http.StatusNoContent)
}

// ownedStore loads the {id} store and checks the caller owns it. On
// failure the response has been written.
func (h *Handler) ownedStore(w http.ResponseWriter, r *http.Request) (*models.Store, bool) {
	store, err := h.storage.GetStore(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeStorageError(w, r, err, i18n.MsgStoreNotFound)
		return nil, false
	}

	caller := callerIdentity(r)
	if !caller.owns(store) {
		h.logger.WithFields(logrus.Fields{
			"store_id": store.ID,
			"user_id":  caller.UserID,
			"role":     caller.Role,
		}).Warn("Rejected store modification by non-owner")
		h.writeError(w, r, http.StatusForbidden, i18n.MsgForbidden, nil)
		return nil, false
	}
	return store, true
}

func (h *Handler) invalidate(r *http.Request, storeID string) {
	if h.cache != nil {
		h.cache.Invalidate(r.Context(), storeID)
	}
}

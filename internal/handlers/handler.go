package handlers

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/storefinder-go/internal/config"
	"github.com/storefinder-go/internal/i18n"
	"github.com/storefinder-go/internal/middleware"
	"github.com/storefinder-go/internal/models"
	"github.com/storefinder-go/internal/services/ai"
	"github.com/storefinder-go/internal/services/cache"
	"github.com/storefinder-go/internal/services/chatbot"
	"github.com/storefinder-go/internal/services/search"
	"github.com/storefinder-go/internal/services/storage"
	"github.com/storefinder-go/internal/validation"
)

// Identity headers set by the upstream auth proxy
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

// maxBodyBytes bounds JSON request bodies
const maxBodyBytes = 1 << 20

// Handler serves the HTTP API
type Handler struct {
	config      *config.Config
	storage     *storage.Manager
	search      *search.Service
	assistant   ai.Service
	cache       cache.Service
	rateLimiter middleware.RateLimiter
	localizer   *i18n.Localizer
	metrics     *middleware.Metrics
	rnd         chatbot.RandSource
	logger      *logrus.Logger
}

// NewHandler creates the API handler
func NewHandler(
	cfg *config.Config,
	storage *storage.Manager,
	searchService *search.Service,
	assistant ai.Service,
	cacheService cache.Service,
	rateLimiter middleware.RateLimiter,
	localizer *i18n.Localizer,
	metrics *middleware.Metrics,
	rnd chatbot.RandSource,
	logger *logrus.Logger,
) *Handler {
	return &Handler{
		config:      cfg,
		storage:     storage,
		search:      searchService,
		assistant:   assistant,
		cache:       cacheService,
		rateLimiter: rateLimiter,
		localizer:   localizer,
		metrics:     metrics,
		rnd:         rnd,
		logger:      logger,
	}
}

// Router builds the route table
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	if h.metrics != nil {
		r.Use(h.metrics.Instrument)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.Use(h.rateLimit)

	// must precede /stores/{id}
	api.HandleFunc("/stores/nearby", h.NearbyStores).Methods(http.MethodGet)

	api.HandleFunc("/stores", h.ListStores).Methods(http.MethodGet)
	api.HandleFunc("/stores", h.CreateStore).Methods(http.MethodPost)
	api.HandleFunc("/stores/{id}", h.GetStore).Methods(http.MethodGet)
	api.HandleFunc("/stores/{id}", h.UpdateStore).Methods(http.MethodPut)
	api.HandleFunc("/stores/{id}", h.DeleteStore).Methods(http.MethodDelete)

	api.HandleFunc("/stores/{id}/inventory", h.ListInventory).Methods(http.MethodGet)
	api.HandleFunc("/stores/{id}/inventory", h.CreateInventoryItem).Methods(http.MethodPost)
	api.HandleFunc("/stores/{id}/inventory/{itemID}", h.UpdateInventoryItem).Methods(http.MethodPut)
	api.HandleFunc("/stores/{id}/inventory/{itemID}", h.DeleteInventoryItem).Methods(http.MethodDelete)

	api.HandleFunc("/search", h.Search).Methods(http.MethodGet)
	api.HandleFunc("/search/suggestions", h.Suggestions).Methods(http.MethodGet)
	api.HandleFunc("/map", h.Map).Methods(http.MethodGet)

	api.HandleFunc("/chat/sessions", h.CreateSession).Methods(http.MethodPost)
	api.HandleFunc("/chat/sessions/{id}", h.GetSession).Methods(http.MethodGet)
	api.HandleFunc("/chat/sessions/{id}", h.DeleteSession).Methods(http.MethodDelete)
	api.HandleFunc("/chat/sessions/{id}/messages", h.SendMessage).Methods(http.MethodPost)
	api.HandleFunc("/chat/assistant", h.Assistant).Methods(http.MethodPost)
	api.HandleFunc("/chat/faq", h.FAQ).Methods(http.MethodGet)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	return r
}

// rateLimit applies the per-client limiter keyed by user or remote address
func (h *Handler) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.rateLimiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		key := clientKey(r)
		if !h.rateLimiter.Allow(key) {
			h.metrics.RecordRateLimitExceeded()
			h.logger.WithField("client", key).Warn("Rate limit exceeded")
			h.writeError(w, r, http.StatusTooManyRequests, i18n.MsgRateLimitExceeded, nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	if userID := strings.TrimSpace(r.Header.Get(HeaderUserID)); userID != "" {
		return "user:" + userID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "addr:" + host
}

// identity is the caller as asserted by the auth proxy
type identity struct {
	UserID string
	Role   string
}

func callerIdentity(r *http.Request) identity {
	return identity{
		UserID: strings.TrimSpace(r.Header.Get(HeaderUserID)),
		Role:   strings.TrimSpace(r.Header.Get(HeaderUserRole)),
	}
}

func (id identity) authenticated() bool {
	return id.UserID != ""
}

func (id identity) isStoreOwner() bool {
	return id.authenticated() && id.Role == models.UserRoleStoreOwner
}

func (id identity) owns(store *models.Store) bool {
	return id.isStoreOwner() && store.OwnerID == id.UserID
}

func (h *Handler) lang(r *http.Request) string {
	if h.localizer == nil {
		return ""
	}
	return h.localizer.Match(r.Header.Get("Accept-Language"))
}

func (h *Handler) message(r *http.Request, id string, data map[string]interface{}) string {
	if h.localizer == nil {
		return id
	}
	return h.localizer.Get(h.lang(r), id, data)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	json.NewEncoder(w).Encode(body)
}

type errorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, messageID string, data map[string]interface{}) {
	writeJSON(w, status, errorResponse{Error: h.message(r, messageID, data), Code: messageID})
}

// writeStorageError maps storage and validation errors onto responses
func (h *Handler) writeStorageError(w http.ResponseWriter, r *http.Request, err error, notFoundID string) {
	var fieldErrs validation.Errors
	switch {
	case errors.Is(err, storage.ErrNotFound):
		h.writeError(w, r, http.StatusNotFound, notFoundID, nil)
	case errors.As(err, &fieldErrs):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:  h.message(r, i18n.MsgValidationFailed, map[string]interface{}{"Reason": fieldErrs.Error()}),
			Code:   i18n.MsgValidationFailed,
			Fields: fieldErrs,
		})
	default:
		h.logger.WithError(err).WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("Request failed")
		h.writeError(w, r, http.StatusInternalServerError, i18n.MsgError, nil)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(dst)
}

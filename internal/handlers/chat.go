package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/storefinder-go/internal/i18n"
	"github.com/storefinder-go/internal/middleware"
	"github.com/storefinder-go/internal/models"
	"github.com/storefinder-go/internal/services/chatbot"
	"github.com/storefinder-go/pkg/logger"
	"github.com/storefinder-go/pkg/markdown"
)

type createSessionRequest struct {
	StoreID string `json:"store_id"`
}

type sendMessageRequest struct {
	Message string `json:"message"`
}

type messageResponse struct {
	SessionID string         `json:"session_id"`
	Reply     string         `json:"reply"`
	HTML      string         `json:"html,omitempty"`
	Message   models.Message `json:"message"`
}

type assistantRequest struct {
	Messages []models.Message `json:"messages"`
	StoreID  string           `json:"store_id"`
}

type assistantResponse struct {
	Response string `json:"response"`
	HTML     string `json:"html,omitempty"`
}

func wantsHTML(r *http.Request) bool {
	return strings.EqualFold(r.URL.Query().Get("format"), "html")
}

// CreateSession opens a chat session. The conversation context comes from
// the identity headers and the optional store in the body, and is fixed
// for the life of the session.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			h.writeError(w, r, http.StatusBadRequest, i18n.MsgInvalidRequest, nil)
			return
		}
	}

	storeID := strings.TrimSpace(req.StoreID)
	if storeID != "" {
		if _, err := h.storage.GetStore(r.Context(), storeID); err != nil {
			h.writeStorageError(w, r, err, i18n.MsgStoreNotFound)
			return
		}
	}

	caller := callerIdentity(r)
	convCtx := models.ConversationContext{
		StoreID:         storeID,
		UserID:          caller.UserID,
		UserRole:        caller.Role,
		IsAuthenticated: caller.authenticated(),
	}
	if convCtx.IsAuthenticated && convCtx.UserRole == "" {
		convCtx.UserRole = models.UserRoleCustomer
	}

	session, err := h.storage.CreateSession(r.Context(), convCtx)
	if err != nil {
		h.writeStorageError(w, r, err, i18n.MsgSessionNotFound)
		return
	}

	logger.WithSession(h.logger, session.ID, storeID).Info("Chat session created")
	writeJSON(w, http.StatusCreated, session)
}

// GetSession returns a session with its history
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.storage.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeStorageError(w, r, err, i18n.MsgSessionNotFound)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// DeleteSession discards a session and its history
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := h.storage.GetSession(r.Context(), id); err != nil {
		h.writeStorageError(w, r, err, i18n.MsgSessionNotFound)
		return
	}
	if err := h.storage.DeleteSession(r.Context(), id); err != nil {
		h.writeStorageError(w, r, err, i18n.MsgSessionNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SendMessage answers one utterance with the pattern responder and
// appends both sides to the session history.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, err := h.storage.GetSession(ctx, mux.Vars(r)["id"])
	if err != nil {
		h.writeStorageError(w, r, err, i18n.MsgSessionNotFound)
		return
	}

	var req sendMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, i18n.MsgInvalidRequest, nil)
		return
	}
	if err := middleware.ValidateMessage(req.Message); err != nil || strings.TrimSpace(req.Message) == "" {
		h.writeError(w, r, http.StatusBadRequest, i18n.MsgMessageInvalid, map[string]interface{}{"Max": middleware.MaxMessageBytes})
		return
	}

	log := logger.WithSession(h.logger, session.ID, session.Context.StoreID)
	h.metrics.RecordMessageReceived(session.Context.StoreID != "")

	responder := chatbot.NewResponder(session.Context, h.storage, h.rnd, h.metrics, h.logger)
	start := time.Now()
	reply := responder.Respond(ctx, req.Message)

	log.WithFields(logrus.Fields{
		"duration": time.Since(start),
		"length":   len(req.Message),
	}).Debug("Reply generated")

	now := time.Now()
	assistantMsg := models.Message{Role: models.RoleAssistant, Content: reply, Timestamp: now}
	session.Messages = append(session.Messages,
		models.Message{Role: models.RoleUser, Content: req.Message, Timestamp: now},
		assistantMsg,
	)
	if limit := h.config.Chat.MaxHistory; limit > 0 && len(session.Messages) > limit {
		session.Messages = session.Messages[len(session.Messages)-limit:]
	}

	if err := h.storage.SaveSession(ctx, session); err != nil {
		log.WithError(err).Error("Failed to save chat history")
	}

	resp := messageResponse{SessionID: session.ID, Reply: reply, Message: assistantMsg}
	if wantsHTML(r) {
		resp.HTML = markdown.ToWidgetHTML(reply)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Assistant answers the last message of the request with the generative
// model. Generator failures still produce a 200 with the fallback text.
func (h *Handler) Assistant(w http.ResponseWriter, r *http.Request) {
	var req assistantRequest
	if err := decodeJSON(w, r, &req); err != nil || len(req.Messages) == 0 {
		h.writeError(w, r, http.StatusBadRequest, i18n.MsgInvalidRequest, nil)
		return
	}

	last := req.Messages[len(req.Messages)-1].Content
	if err := middleware.ValidateMessage(last); err != nil || strings.TrimSpace(last) == "" {
		h.writeError(w, r, http.StatusBadRequest, i18n.MsgMessageInvalid, map[string]interface{}{"Max": middleware.MaxMessageBytes})
		return
	}

	reply := h.assistant.Reply(r.Context(), strings.TrimSpace(req.StoreID), last)
	resp := assistantResponse{Response: reply}
	if wantsHTML(r) {
		resp.HTML = markdown.ToWidgetHTML(reply)
	}
	writeJSON(w, http.StatusOK, resp)
}

// FAQ looks ?q= up in the training table
func (h *Handler) FAQ(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	match := chatbot.FindBestMatch(q, chatbot.TrainingData())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"query": q,
		"match": match,
	})
}

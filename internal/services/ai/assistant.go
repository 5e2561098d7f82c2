package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
	"github.com/storefinder-go/internal/config"
	"github.com/storefinder-go/internal/models"
	"github.com/storefinder-go/internal/services/cache"
)

// FallbackReply is returned whenever the generator cannot produce an answer
const FallbackReply = "I'm sorry, I'm having trouble accessing store information right now. Please try again later or contact store support for assistance."

// DefaultSystemPrompt describes the assistant to the model
const DefaultSystemPrompt = `You are a helpful assistant for a Store Inventory Finder application. Your name is StoreBot.

Your primary functions are:
1. Help users find products in stores
2. Answer questions about store locations, hours, and inventory
3. Provide information about product availability
4. Assist with navigating the store finder application

Important rules:
- Only answer questions related to store inventory, locations, and the application
- For questions outside this scope, politely redirect to store-related topics
- Be concise and helpful
- Don't make up information about specific stores or inventory that you don't have
- If asked about specific inventory, suggest using the search function on the website
- When providing store information, use the exact details provided to you

Current application context:
- Users can browse stores on a map
- Each store has its own inventory
- Users can check product availability at different stores
- Store owners can update their inventory

Respond in a friendly, helpful manner.`

// ChatClient is the part of the OpenAI client the assistant calls
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// StoreReader loads the store data placed in the prompt
type StoreReader interface {
	GetStore(ctx context.Context, storeID string) (*models.Store, error)
	ListInventory(ctx context.Context, storeID string, filter models.InventoryFilter) ([]models.InventoryItem, error)
}

// Recorder receives generator outcomes
type Recorder interface {
	RecordGenerativeRequest(model, status string, duration time.Duration)
	RecordCacheHit()
	RecordCacheMiss()
}

// Service answers free-form questions with a language model
type Service interface {
	Reply(ctx context.Context, storeID, utterance string) string
	Enabled() bool
}

// Assistant implements Service on an OpenAI-compatible endpoint
type Assistant struct {
	cfg          config.GenerativeConfig
	systemPrompt string
	client       ChatClient
	reader       StoreReader
	cache        cache.Service
	recorder     Recorder
	logger       *logrus.Logger
	backoff      func(attempt int) time.Duration
}

// NewAssistant builds an assistant talking to cfg.Chat.Generative.BaseURL
func NewAssistant(cfg *config.Config, reader StoreReader, cacheService cache.Service, recorder Recorder, logger *logrus.Logger) *Assistant {
	gen := cfg.Chat.Generative
	clientConfig := openai.DefaultConfig(gen.APIKey)
	if gen.BaseURL != "" {
		clientConfig.BaseURL = gen.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{Timeout: gen.Timeout}

	logger.WithFields(logrus.Fields{
		"enabled":  gen.Enabled,
		"model":    gen.Model,
		"base_url": clientConfig.BaseURL,
	}).Info("Generative assistant initialized")

	return NewAssistantWithClient(cfg, openai.NewClientWithConfig(clientConfig), reader, cacheService, recorder, logger)
}

// NewAssistantWithClient builds an assistant on an existing client
func NewAssistantWithClient(cfg *config.Config, client ChatClient, reader StoreReader, cacheService cache.Service, recorder Recorder, logger *logrus.Logger) *Assistant {
	prompt := cfg.Chat.SystemPrompt
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultSystemPrompt
	}
	return &Assistant{
		cfg:          cfg.Chat.Generative,
		systemPrompt: prompt,
		client:       client,
		reader:       reader,
		cache:        cacheService,
		recorder:     recorder,
		logger:       logger,
		backoff: func(attempt int) time.Duration {
			// 2s, 4s, 8s
			return time.Duration(2<<uint(attempt-1)) * time.Second
		},
	}
}

// Enabled reports whether the generator is configured
func (a *Assistant) Enabled() bool {
	return a.cfg.Enabled
}

// Reply answers utterance, optionally grounded on a store. Errors never
// reach the caller: they are logged and FallbackReply is returned.
func (a *Assistant) Reply(ctx context.Context, storeID, utterance string) string {
	if !a.cfg.Enabled {
		return FallbackReply
	}

	if a.cache != nil {
		if answer, ok := a.cache.Get(ctx, storeID, utterance); ok {
			a.recordCache(true)
			return answer
		}
		a.recordCache(false)
	}

	messages := a.BuildMessages(ctx, storeID, utterance)
	answer, err := a.complete(ctx, messages)
	if err != nil {
		a.logger.WithError(err).WithField("store_id", storeID).Error("Generative request failed")
		return FallbackReply
	}

	if a.cache != nil {
		if err := a.cache.Set(ctx, storeID, utterance, answer); err != nil {
			a.logger.WithError(err).Warn("Failed to cache answer")
		}
	}
	return answer
}

// BuildMessages composes the system prompt, the store context block and
// the user's utterance.
func (a *Assistant) BuildMessages(ctx context.Context, storeID, utterance string) []openai.ChatCompletionMessage {
	system := a.systemPrompt
	if block := a.storeContext(ctx, storeID); block != "" {
		system += "\n\n" + block
	}
	return []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system},
		{Role: openai.ChatMessageRoleUser, Content: utterance},
	}
}

func (a *Assistant) storeContext(ctx context.Context, storeID string) string {
	if storeID == "" || a.reader == nil {
		return ""
	}

	store, err := a.reader.GetStore(ctx, storeID)
	if err != nil {
		a.logger.WithError(err).WithField("store_id", storeID).Warn("Store unavailable for prompt context")
		return ""
	}

	var b strings.Builder
	b.WriteString("Current store information:\n")
	fmt.Fprintf(&b, "- Store Name: %s\n", store.Name)
	fmt.Fprintf(&b, "- Store ID: %s\n", store.ID)
	fmt.Fprintf(&b, "- Location: %s\n", orDefault(store.Address, "Address not specified"))
	fmt.Fprintf(&b, "- Contact: %s\n", orDefault(store.Phone, "Phone not specified"))
	fmt.Fprintf(&b, "- Hours: %s\n", orDefault(store.OpeningHours, "Hours not specified"))

	items, err := a.reader.ListInventory(ctx, storeID, models.InventoryFilter{})
	if err != nil || len(items) == 0 {
		if err != nil {
			a.logger.WithError(err).WithField("store_id", storeID).Warn("Inventory unavailable for prompt context")
		}
		b.WriteString("\nNo inventory items are currently available for this store.")
		return b.String()
	}

	b.WriteString("\nCurrent inventory items:\n")
	for _, item := range items {
		fmt.Fprintf(&b, "- %s: %d in stock, Price: $%s\n", item.Name, item.Quantity, strconv.FormatFloat(item.Price, 'f', -1, 64))
	}
	return b.String()
}

func (a *Assistant) complete(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error) {
	attempts := a.cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		answer, err := a.attempt(ctx, messages)
		if err == nil {
			return answer, nil
		}
		lastErr = err

		if attempt < attempts {
			a.logger.WithFields(logrus.Fields{
				"attempt": attempt,
				"error":   err.Error(),
				"model":   a.cfg.Model,
			}).Warn("Generative request failed, retrying...")

			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(a.backoff(attempt)):
			}
		}
	}

	if attempts == 1 {
		return "", lastErr
	}
	return "", fmt.Errorf("all %d attempts failed: %w", attempts, lastErr)
}

func (a *Assistant) attempt(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error) {
	start := time.Now()
	status := "success"
	defer func() {
		if a.recorder != nil {
			a.recorder.RecordGenerativeRequest(a.cfg.Model, status, time.Since(start))
		}
	}()

	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     a.cfg.Model,
		Messages:  messages,
		MaxTokens: a.cfg.MaxTokens,
	})
	if err != nil {
		status = "error"
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("generative api error %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
		}
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		status = "empty"
		return "", errors.New("no response from model")
	}
	return resp.Choices[0].Message.Content, nil
}

func (a *Assistant) recordCache(hit bool) {
	if a.recorder == nil {
		return
	}
	if hit {
		a.recorder.RecordCacheHit()
	} else {
		a.recorder.RecordCacheMiss()
	}
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

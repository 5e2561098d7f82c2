package ai

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
	"github.com/storefinder-go/internal/config"
	"github.com/storefinder-go/internal/models"
	"github.com/storefinder-go/internal/services/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	mu       sync.Mutex
	requests []openai.ChatCompletionRequest
	replies  []string
	errs     []error
}

func (f *fakeClient) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.requests)
	f.requests = append(f.requests, req)
	if n < len(f.errs) && f.errs[n] != nil {
		return openai.ChatCompletionResponse{}, f.errs[n]
	}
	content := ""
	if n < len(f.replies) {
		content = f.replies[n]
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: content}}},
	}, nil
}

func (f *fakeClient) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type fakeReader struct {
	store     *models.Store
	inventory []models.InventoryItem
	storeErr  error
}

func (f *fakeReader) GetStore(_ context.Context, storeID string) (*models.Store, error) {
	if f.storeErr != nil {
		return nil, f.storeErr
	}
	if f.store == nil || f.store.ID != storeID {
		return nil, errors.New("not found")
	}
	return f.store, nil
}

func (f *fakeReader) ListInventory(_ context.Context, _ string, _ models.InventoryFilter) ([]models.InventoryItem, error) {
	return f.inventory, nil
}

type statusRecorder struct {
	statuses []string
	hits     int
	misses   int
}

func (r *statusRecorder) RecordGenerativeRequest(_, status string, _ time.Duration) {
	r.statuses = append(r.statuses, status)
}
func (r *statusRecorder) RecordCacheHit()  { r.hits++ }
func (r *statusRecorder) RecordCacheMiss() { r.misses++ }

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testConfig(attempts int, cacheEnabled bool) *config.Config {
	return &config.Config{
		Chat: config.ChatConfig{
			Generative: config.GenerativeConfig{
				Enabled:     true,
				APIKey:      "test",
				Model:       "test-model",
				MaxTokens:   128,
				MaxAttempts: attempts,
			},
		},
		Cache: config.CacheConfig{Enabled: cacheEnabled, TTL: time.Minute, MaxSize: 10},
	}
}

func newTestAssistant(cfg *config.Config, client ChatClient, reader StoreReader, rec Recorder) *Assistant {
	logger := quietLogger()
	a := NewAssistantWithClient(cfg, client, reader, cache.NewCache(cfg, logger), rec, logger)
	a.backoff = func(int) time.Duration { return time.Millisecond }
	return a
}

func TestReplyReturnsModelTextVerbatim(t *testing.T) {
	client := &fakeClient{replies: []string{"  We open at 9am.\n"}}
	rec := &statusRecorder{}
	a := newTestAssistant(testConfig(1, false), client, nil, rec)

	got := a.Reply(context.Background(), "", "when do you open?")
	assert.Equal(t, "  We open at 9am.\n", got)
	require.Equal(t, 1, client.calls())

	req := client.requests[0]
	assert.Equal(t, "test-model", req.Model)
	assert.Equal(t, 128, req.MaxTokens)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, DefaultSystemPrompt, req.Messages[0].Content)
	assert.Equal(t, openai.ChatMessageRoleUser, req.Messages[1].Role)
	assert.Equal(t, "when do you open?", req.Messages[1].Content)
	assert.Equal(t, []string{"success"}, rec.statuses)
}

func TestReplyIncludesStoreContext(t *testing.T) {
	reader := &fakeReader{
		store: &models.Store{ID: "s1", Name: "Corner Shop", Address: "12 High Street", OpeningHours: "9-5"},
		inventory: []models.InventoryItem{
			{Name: "Red Shirt", Quantity: 4, Price: 19.99},
			{Name: "Blue Jeans", Quantity: 0, Price: 40},
		},
	}
	client := &fakeClient{replies: []string{"ok"}}
	a := newTestAssistant(testConfig(1, false), client, reader, nil)

	a.Reply(context.Background(), "s1", "anything red?")
	system := client.requests[0].Messages[0].Content

	assert.True(t, strings.HasPrefix(system, DefaultSystemPrompt))
	assert.Contains(t, system, "- Store Name: Corner Shop")
	assert.Contains(t, system, "- Location: 12 High Street")
	assert.Contains(t, system, "- Contact: Phone not specified")
	assert.Contains(t, system, "- Red Shirt: 4 in stock, Price: $19.99")
	assert.Contains(t, system, "- Blue Jeans: 0 in stock, Price: $40")
}

func TestReplyWithEmptyInventory(t *testing.T) {
	reader := &fakeReader{store: &models.Store{ID: "s1", Name: "Corner Shop"}}
	client := &fakeClient{replies: []string{"ok"}}
	a := newTestAssistant(testConfig(1, false), client, reader, nil)

	messages := a.BuildMessages(context.Background(), "s1", "hi")
	assert.Contains(t, messages[0].Content, "No inventory items are currently available for this store.")
}

func TestReplyMissingStoreOmitsContext(t *testing.T) {
	reader := &fakeReader{storeErr: errors.New("boom")}
	a := newTestAssistant(testConfig(1, false), &fakeClient{}, reader, nil)

	messages := a.BuildMessages(context.Background(), "s1", "hi")
	assert.Equal(t, DefaultSystemPrompt, messages[0].Content)
}

func TestReplyFailureReturnsFallbackWithoutRetry(t *testing.T) {
	client := &fakeClient{errs: []error{errors.New("upstream down")}, replies: []string{"", "late"}}
	rec := &statusRecorder{}
	a := newTestAssistant(testConfig(1, false), client, nil, rec)

	assert.Equal(t, FallbackReply, a.Reply(context.Background(), "", "hello"))
	assert.Equal(t, 1, client.calls())
	assert.Equal(t, []string{"error"}, rec.statuses)
}

func TestReplyRetriesUpToMaxAttempts(t *testing.T) {
	client := &fakeClient{errs: []error{errors.New("a"), errors.New("b")}, replies: []string{"", "", "third time"}}
	a := newTestAssistant(testConfig(3, false), client, nil, nil)

	assert.Equal(t, "third time", a.Reply(context.Background(), "", "hello"))
	assert.Equal(t, 3, client.calls())
}

func TestReplyEmptyChoiceIsFailure(t *testing.T) {
	client := &fakeClient{replies: []string{""}}
	rec := &statusRecorder{}
	a := newTestAssistant(testConfig(1, false), client, nil, rec)

	assert.Equal(t, FallbackReply, a.Reply(context.Background(), "", "hello"))
	assert.Equal(t, []string{"empty"}, rec.statuses)
}

func TestReplyUsesCache(t *testing.T) {
	client := &fakeClient{replies: []string{"first", "second"}}
	rec := &statusRecorder{}
	a := newTestAssistant(testConfig(1, true), client, nil, rec)

	assert.Equal(t, "first", a.Reply(context.Background(), "s1", "hello"))
	assert.Equal(t, "first", a.Reply(context.Background(), "s1", "hello"))
	assert.Equal(t, 1, client.calls())
	assert.Equal(t, 1, rec.hits)
	assert.Equal(t, 1, rec.misses)
}

func TestReplyDisabled(t *testing.T) {
	cfg := testConfig(1, false)
	cfg.Chat.Generative.Enabled = false
	client := &fakeClient{replies: []string{"nope"}}
	a := newTestAssistant(cfg, client, nil, nil)

	assert.False(t, a.Enabled())
	assert.Equal(t, FallbackReply, a.Reply(context.Background(), "", "hello"))
	assert.Equal(t, 0, client.calls())
}

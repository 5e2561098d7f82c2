package i18n

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/storefinder-go/internal/config"
	"golang.org/x/text/language"
)

// Localizer manages internationalization
type Localizer struct {
	bundle          *i18n.Bundle
	defaultLanguage string
	localizers      map[string]*i18n.Localizer
}

// NewLocalizer creates a localizer with the built-in English messages
// plus any <lang>.json files found in cfg.Directory. A missing file is
// skipped; a malformed one is an error.
func NewLocalizer(cfg *config.I18nConfig) (*Localizer, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)
	if err := bundle.AddMessages(language.English, defaultMessages...); err != nil {
		return nil, fmt.Errorf("failed to add default messages: %w", err)
	}

	languages := cfg.Languages
	if len(languages) == 0 {
		languages = []string{"en"}
	}

	for _, lang := range languages {
		if cfg.Directory == "" {
			break
		}
		path := filepath.Join(cfg.Directory, fmt.Sprintf("%s.json", lang))
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if _, err := bundle.LoadMessageFile(path); err != nil {
			return nil, fmt.Errorf("failed to load language file %s: %w", lang, err)
		}
	}

	defaultLanguage := cfg.DefaultLanguage
	if defaultLanguage == "" {
		defaultLanguage = "en"
	}

	localizers := make(map[string]*i18n.Localizer)
	for _, lang := range languages {
		localizers[lang] = i18n.NewLocalizer(bundle, lang, defaultLanguage)
	}
	if _, ok := localizers[defaultLanguage]; !ok {
		localizers[defaultLanguage] = i18n.NewLocalizer(bundle, defaultLanguage)
	}

	return &Localizer{
		bundle:          bundle,
		defaultLanguage: defaultLanguage,
		localizers:      localizers,
	}, nil
}

// Get returns localized message
func (l *Localizer) Get(lang, messageID string, data map[string]interface{}) string {
	localizer, exists := l.localizers[lang]
	if !exists {
		localizer = l.localizers[l.defaultLanguage]
	}

	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	// a fallback to the bundle language comes back with a not-found error
	if err != nil && msg == "" {
		return messageID
	}

	return msg
}

// Match picks the configured language that best fits an Accept-Language header
func (l *Localizer) Match(acceptLanguage string) string {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil {
		return l.defaultLanguage
	}
	for _, tag := range tags {
		base, _ := tag.Base()
		if _, ok := l.localizers[base.String()]; ok {
			return base.String()
		}
	}
	return l.defaultLanguage
}

// Message IDs
const (
	MsgInvalidRequest    = "invalid_request"
	MsgValidationFailed  = "validation_failed"
	MsgNotFound          = "not_found"
	MsgStoreNotFound     = "store_not_found"
	MsgItemNotFound      = "item_not_found"
	MsgSessionNotFound   = "session_not_found"
	MsgForbidden         = "forbidden"
	MsgOwnerRequired     = "owner_required"
	MsgRateLimitExceeded = "rate_limit_exceeded"
	MsgMessageInvalid    = "message_invalid"
	MsgInvalidLocation   = "invalid_location"
	MsgError             = "error"
)

var defaultMessages = []*i18n.Message{
	{ID: MsgInvalidRequest, Other: "Invalid request format"},
	{ID: MsgValidationFailed, Other: "Validation failed: {{.Reason}}"},
	{ID: MsgNotFound, Other: "Not found"},
	{ID: MsgStoreNotFound, Other: "Store not found"},
	{ID: MsgItemNotFound, Other: "Inventory item not found"},
	{ID: MsgSessionNotFound, Other: "Chat session not found or expired"},
	{ID: MsgForbidden, Other: "You don't have permission to modify this store"},
	{ID: MsgOwnerRequired, Other: "Only store owners can create stores"},
	{ID: MsgRateLimitExceeded, Other: "Too many requests. Please wait a moment and try again."},
	{ID: MsgMessageInvalid, Other: "Message must be valid text of at most {{.Max}} bytes"},
	{ID: MsgInvalidLocation, Other: "Invalid coordinates"},
	{ID: MsgError, Other: "Failed to process request"},
}

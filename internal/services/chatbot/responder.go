package chatbot

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/storefinder-go/internal/models"
)

// StoreReader is the read side of the store repository the responder needs
type StoreReader interface {
	GetStore(ctx context.Context, storeID string) (*models.Store, error)
	ListInventory(ctx context.Context, storeID string, filter models.InventoryFilter) ([]models.InventoryItem, error)
}

// RandSource picks template indexes
type RandSource interface {
	Intn(n int) int
}

// Recorder receives reply and lookup outcomes
type Recorder interface {
	RecordReply(match string)
	RecordLookupFailure(lookup string)
}

const (
	contextInventoryLimit      = 5
	availabilityInventoryLimit = 3
)

// lockedRand makes a math/rand source safe for concurrent sessions
type lockedRand struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandSource returns a goroutine-safe source seeded with seed
func NewRandSource(seed int64) RandSource {
	return &lockedRand{rnd: rand.New(rand.NewSource(seed))}
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rnd.Intn(n)
}

// snapshot is the store data read while answering one utterance
type snapshot struct {
	store     *models.Store
	inventory []models.InventoryItem
}

// rule is one step of the ordered dispatch; ok=false falls through
type rule struct {
	name   string
	handle func(ctx context.Context, input string, snap *snapshot) (reply string, ok bool, err error)
}

// Responder answers chat utterances for one conversation context.
// It only reads store data and keeps no state between calls.
type Responder struct {
	convCtx  models.ConversationContext
	reader   StoreReader
	rnd      RandSource
	patterns []Pattern
	rules    []rule
	recorder Recorder
	logger   *logrus.Logger
}

// NewResponder creates a responder bound to convCtx. recorder may be nil.
func NewResponder(convCtx models.ConversationContext, reader StoreReader, rnd RandSource, recorder Recorder, logger *logrus.Logger) *Responder {
	if rnd == nil {
		rnd = NewRandSource(time.Now().UnixNano())
	}
	r := &Responder{
		convCtx:  convCtx,
		reader:   reader,
		rnd:      rnd,
		patterns: DefaultPatterns(),
		recorder: recorder,
		logger:   logger,
	}
	r.rules = r.buildRules()
	return r
}

// Context returns the conversation context the responder was built with
func (r *Responder) Context() models.ConversationContext {
	return r.convCtx
}

// buildRules lays out the dispatch order. Categories keep their declared
// order. The availability lookup runs ahead of the inventory category only
// when the inventory trigger is what matched, since that trigger contains
// "stock"; otherwise it runs after every category has missed.
func (r *Responder) buildRules() []rule {
	var rules []rule
	for _, p := range r.patterns {
		if p.Category == CategoryInventory {
			rules = append(rules, rule{name: IntentAvailability, handle: r.availabilityWhen(p.Trigger)})
		}
		rules = append(rules, rule{name: p.Category, handle: r.category(p)})
	}
	rules = append(rules,
		rule{name: IntentAvailability, handle: r.availability},
		rule{name: IntentHours, handle: r.hours},
	)
	return rules
}

// Respond produces a reply to one utterance. It never returns an error:
// lookup failures degrade to template or default replies and anything
// unexpected becomes an apology.
func (r *Responder) Respond(ctx context.Context, userInput string) (reply string) {
	defer func() {
		if rec := recover(); rec != nil {
			err, ok := rec.(error)
			if !ok {
				err = fmt.Errorf("%v", rec)
			}
			r.logger.WithError(err).Error("Responder panicked")
			reply = apology(err)
		}
	}()

	input := strings.ToLower(strings.TrimSpace(userInput))
	snap := r.prefetch(ctx)

	for _, rl := range r.rules {
		out, ok, err := rl.handle(ctx, input, snap)
		if err != nil {
			r.logger.WithError(err).WithField("rule", rl.name).Error("Error processing message")
			return apology(err)
		}
		if ok {
			r.record(rl.name)
			return out
		}
	}

	r.record(MatchDefault)
	return DefaultReply
}

func apology(err error) string {
	if err != nil && err.Error() != "" {
		return fmt.Sprintf("I apologize, but I encountered an error: %s. Please try again later.", err.Error())
	}
	return "I apologize, but I'm having trouble processing your request at the moment. Please try again later."
}

func (r *Responder) record(match string) {
	if r.recorder != nil {
		r.recorder.RecordReply(match)
	}
}

func (r *Responder) lookupFailed(lookup string, err error) {
	r.logger.WithError(err).WithFields(logrus.Fields{
		"store_id": r.convCtx.StoreID,
		"lookup":   lookup,
	}).Warn("Store lookup failed, continuing without data")
	if r.recorder != nil {
		r.recorder.RecordLookupFailure(lookup)
	}
}

// prefetch reads the store and a short inventory list for context.
// Both reads are best effort.
func (r *Responder) prefetch(ctx context.Context) *snapshot {
	snap := &snapshot{}
	if r.convCtx.StoreID == "" || r.reader == nil {
		return snap
	}

	store, err := r.reader.GetStore(ctx, r.convCtx.StoreID)
	if err != nil {
		r.lookupFailed("store", err)
	} else {
		snap.store = store
	}

	items, err := r.reader.ListInventory(ctx, r.convCtx.StoreID, models.InventoryFilter{Limit: contextInventoryLimit})
	if err != nil {
		r.lookupFailed("inventory", err)
	} else {
		snap.inventory = items
	}

	fields := logrus.Fields{
		"store_id":        r.convCtx.StoreID,
		"inventory_count": len(snap.inventory),
		"authenticated":   r.convCtx.IsAuthenticated,
		"role":            r.convCtx.UserRole,
	}
	if snap.store != nil {
		fields["store_name"] = snap.store.Name
	}
	r.logger.WithFields(fields).Debug("Context data")

	return snap
}

func (r *Responder) category(p Pattern) func(context.Context, string, *snapshot) (string, bool, error) {
	return func(_ context.Context, input string, _ *snapshot) (string, bool, error) {
		if !p.Trigger.MatchString(input) || len(p.Responses) == 0 {
			return "", false, nil
		}
		return p.Responses[r.rnd.Intn(len(p.Responses))], true, nil
	}
}

func (r *Responder) availabilityWhen(trigger *regexp.Regexp) func(context.Context, string, *snapshot) (string, bool, error) {
	return func(ctx context.Context, input string, snap *snapshot) (string, bool, error) {
		if !trigger.MatchString(input) {
			return "", false, nil
		}
		return r.availability(ctx, input, snap)
	}
}

func (r *Responder) availability(ctx context.Context, input string, _ *snapshot) (string, bool, error) {
	if r.convCtx.StoreID == "" || r.reader == nil || !availabilityTrigger.MatchString(input) {
		return "", false, nil
	}

	product := ExtractProductName(input)
	if product == "" {
		return "", false, nil
	}

	items, err := r.reader.ListInventory(ctx, r.convCtx.StoreID, models.InventoryFilter{
		NameContains: product,
		Limit:        availabilityInventoryLimit,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return "", false, err
		}
		r.lookupFailed("availability", err)
		return "", false, nil
	}

	if len(items) == 0 {
		return fmt.Sprintf("I'm sorry, but it doesn't look like we have %q in stock at the moment. Is there something else you're looking for?", product), true, nil
	}

	listed := make([]string, len(items))
	for i, item := range items {
		listed[i] = fmt.Sprintf("%s (%d in stock)", item.Name, item.Quantity)
	}
	return "Yes, we have the following related products: " + strings.Join(listed, ", "), true, nil
}

func (r *Responder) hours(ctx context.Context, input string, snap *snapshot) (string, bool, error) {
	if r.convCtx.StoreID == "" || !hoursTrigger.MatchString(input) {
		return "", false, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil && snap.store == nil {
		return "", false, ctxErr
	}
	if snap.store == nil {
		return "", false, nil
	}
	return fmt.Sprintf("The store is open %s. The next opening time is %s.", snap.store.OpeningHours, snap.store.NextOpeningTime), true, nil
}

// ExtractProductName pulls the product phrase out of an availability
// question, dropping articles and trailing phrases such as "in stock".
func ExtractProductName(input string) string {
	m := productCapture.FindStringSubmatch(strings.ToLower(input))
	if m == nil {
		return ""
	}
	name := strings.Join(strings.Fields(m[2]), " ")
	name = leadingFillers.ReplaceAllString(name, "")
	name = trailingFillers.ReplaceAllString(name, "")
	return strings.TrimSpace(name)
}

package chatbot

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefinder-go/internal/models"
)

type fixedRand int

func (f fixedRand) Intn(n int) int { return int(f) % n }

type fakeReader struct {
	store        *models.Store
	items        []models.InventoryItem
	storeErr     error
	inventoryErr error
	panicOnRead  bool
	filters      []models.InventoryFilter
}

func (f *fakeReader) GetStore(ctx context.Context, storeID string) (*models.Store, error) {
	if f.panicOnRead {
		panic(errors.New("reader exploded"))
	}
	if f.storeErr != nil {
		return nil, f.storeErr
	}
	if f.store == nil || f.store.ID != storeID {
		return nil, errors.New("not found")
	}
	s := *f.store
	return &s, nil
}

func (f *fakeReader) ListInventory(ctx context.Context, storeID string, filter models.InventoryFilter) ([]models.InventoryItem, error) {
	f.filters = append(f.filters, filter)
	if f.inventoryErr != nil {
		return nil, f.inventoryErr
	}
	var out []models.InventoryItem
	for _, item := range f.items {
		if item.StoreID != storeID {
			continue
		}
		if filter.NameContains != "" && !strings.Contains(strings.ToLower(item.Name), strings.ToLower(filter.NameContains)) {
			continue
		}
		out = append(out, item)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

type countingRecorder struct {
	replies  []string
	failures []string
}

func (c *countingRecorder) RecordReply(match string)          { c.replies = append(c.replies, match) }
func (c *countingRecorder) RecordLookupFailure(lookup string) { c.failures = append(c.failures, lookup) }

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testStore() *models.Store {
	return &models.Store{
		ID:              "store-1",
		Name:            "Downtown Superstore",
		Address:         "123 Main St, Downtown, City",
		OpeningHours:    "Mon-Fri: 8AM-9PM",
		NextOpeningTime: "tomorrow at 8AM",
	}
}

func withStore() models.ConversationContext {
	return models.ConversationContext{StoreID: "store-1", UserID: "u-1", UserRole: models.UserRoleCustomer, IsAuthenticated: true}
}

func TestRespondGreetingUsesInjectedSource(t *testing.T) {
	greetings := ResponsesFor(CategoryGreeting)
	require.Len(t, greetings, 3)

	for i := range greetings {
		r := NewResponder(models.ConversationContext{}, nil, fixedRand(i), nil, quietLogger())
		assert.Equal(t, greetings[i], r.Respond(context.Background(), "hello"))
	}
}

func TestRespondCategoryRepliesComeFromTemplates(t *testing.T) {
	cases := map[string]string{
		"Hey there":                        CategoryGreeting,
		"what are your store hours?":       CategoryStoreHours,
		"tell me about your inventory":     CategoryInventory,
		"what is the address":              CategoryLocation,
		"thank you so much":                CategoryThanks,
		"ok bye":                           CategoryFarewell,
		"  GOODBYE  ":                      CategoryFarewell,
		"when is the store open tomorrow?": CategoryStoreHours,
	}

	for input, category := range cases {
		t.Run(input, func(t *testing.T) {
			rec := &countingRecorder{}
			r := NewResponder(models.ConversationContext{}, nil, NewRandSource(42), rec, quietLogger())
			reply := r.Respond(context.Background(), input)
			assert.Contains(t, ResponsesFor(category), reply)
			assert.Equal(t, []string{category}, rec.replies)
		})
	}
}

func TestRespondFirstDeclaredCategoryWins(t *testing.T) {
	r := NewResponder(models.ConversationContext{}, nil, fixedRand(0), nil, quietLogger())
	// greeting is declared before farewell
	assert.Equal(t, ResponsesFor(CategoryGreeting)[0], r.Respond(context.Background(), "hello and goodbye"))
}

func TestRespondDefaultWithoutStoreContext(t *testing.T) {
	r := NewResponder(models.ConversationContext{}, &fakeReader{}, fixedRand(0), nil, quietLogger())
	assert.Equal(t, DefaultReply, r.Respond(context.Background(), "what's the weather like"))
	// hours intent needs a store
	assert.Equal(t, DefaultReply, r.Respond(context.Background(), "what time do you close"))
}

func TestRespondAvailabilityListsMatches(t *testing.T) {
	reader := &fakeReader{
		store: testStore(),
		items: []models.InventoryItem{
			{ID: "i1", StoreID: "store-1", Name: "Red Shirt", Quantity: 3},
			{ID: "i2", StoreID: "store-1", Name: "Blue Jeans", Quantity: 7},
		},
	}
	rec := &countingRecorder{}
	r := NewResponder(withStore(), reader, fixedRand(0), rec, quietLogger())

	reply := r.Respond(context.Background(), "is there a red shirt in stock")
	assert.Contains(t, reply, "Red Shirt")
	assert.Contains(t, reply, "3")
	assert.Equal(t, "Yes, we have the following related products: Red Shirt (3 in stock)", reply)
	assert.Equal(t, []string{IntentAvailability}, rec.replies)

	// prefetch read plus the product lookup
	require.Len(t, reader.filters, 2)
	assert.Equal(t, models.InventoryFilter{Limit: 5}, reader.filters[0])
	assert.Equal(t, models.InventoryFilter{NameContains: "red shirt", Limit: 3}, reader.filters[1])
}

func TestRespondAvailabilityNotInStock(t *testing.T) {
	reader := &fakeReader{
		store: testStore(),
		items: []models.InventoryItem{{ID: "i2", StoreID: "store-1", Name: "Blue Jeans", Quantity: 7}},
	}
	r := NewResponder(withStore(), reader, fixedRand(0), nil, quietLogger())

	reply := r.Respond(context.Background(), "is there a red shirt in stock")
	assert.Equal(t, `I'm sorry, but it doesn't look like we have "red shirt" in stock at the moment. Is there something else you're looking for?`, reply)
}

func TestRespondAvailabilityWithoutStoreFallsThrough(t *testing.T) {
	r := NewResponder(models.ConversationContext{}, &fakeReader{}, fixedRand(1), nil, quietLogger())
	reply := r.Respond(context.Background(), "is there a red shirt in stock")
	assert.Equal(t, ResponsesFor(CategoryInventory)[1], reply)
}

func TestRespondAvailabilityLookupFailureDegrades(t *testing.T) {
	reader := &fakeReader{store: testStore(), inventoryErr: errors.New("connection refused")}
	rec := &countingRecorder{}
	r := NewResponder(withStore(), reader, fixedRand(0), rec, quietLogger())

	reply := r.Respond(context.Background(), "do you have milk")
	assert.Equal(t, DefaultReply, reply)
	assert.Equal(t, []string{"inventory", "availability"}, rec.failures)
}

func TestRespondHoursIntent(t *testing.T) {
	r := NewResponder(withStore(), &fakeReader{store: testStore()}, fixedRand(0), nil, quietLogger())
	reply := r.Respond(context.Background(), "what time do you close")
	assert.Equal(t, "The store is open Mon-Fri: 8AM-9PM. The next opening time is tomorrow at 8AM.", reply)
}

func TestRespondHoursIntentMissingStore(t *testing.T) {
	reader := &fakeReader{storeErr: errors.New("timeout")}
	r := NewResponder(withStore(), reader, fixedRand(0), nil, quietLogger())
	assert.Equal(t, DefaultReply, r.Respond(context.Background(), "are you closing soon"))
}

func TestRespondCanceledContextApologizes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reader := &fakeReader{store: testStore(), inventoryErr: context.Canceled}
	r := NewResponder(withStore(), reader, fixedRand(0), nil, quietLogger())

	reply := r.Respond(ctx, "do you have milk")
	assert.Equal(t, "I apologize, but I encountered an error: context canceled. Please try again later.", reply)
}

func TestRespondRecoversFromPanics(t *testing.T) {
	r := NewResponder(withStore(), &fakeReader{panicOnRead: true}, fixedRand(0), nil, quietLogger())
	reply := r.Respond(context.Background(), "hello")
	assert.Equal(t, "I apologize, but I encountered an error: reader exploded. Please try again later.", reply)
}

func TestRespondCategoriesBeatAvailabilityWithStore(t *testing.T) {
	cases := map[string]string{
		"hello, do you have milk":            CategoryGreeting,
		"what are your store hours":          CategoryStoreHours,
		"tell me about your inventory":       CategoryInventory,
		"is there an address for the store":  CategoryLocation,
		"where is there a bus stop":          CategoryLocation,
		"thank you, is there anything else":  CategoryThanks,
		"goodbye, do you have a nice day":    CategoryFarewell,
		"bye, is there a sale in the future": CategoryFarewell,
	}

	for input, category := range cases {
		t.Run(input, func(t *testing.T) {
			reader := &fakeReader{
				store: testStore(),
				items: []models.InventoryItem{{ID: "i1", StoreID: "store-1", Name: "Milk", Quantity: 2}},
			}
			rec := &countingRecorder{}
			r := NewResponder(withStore(), reader, fixedRand(0), rec, quietLogger())

			reply := r.Respond(context.Background(), input)
			assert.Contains(t, ResponsesFor(category), reply)
			assert.Equal(t, []string{category}, rec.replies)
			// only the context prefetch touched inventory
			assert.Len(t, reader.filters, 1)
		})
	}
}

func TestRespondAvailabilityWithoutCategoryMatch(t *testing.T) {
	reader := &fakeReader{
		store: testStore(),
		items: []models.InventoryItem{{ID: "i1", StoreID: "store-1", Name: "Whole Milk", Quantity: 2}},
	}
	rec := &countingRecorder{}
	r := NewResponder(withStore(), reader, fixedRand(0), rec, quietLogger())

	assert.Equal(t, "Yes, we have the following related products: Whole Milk (2 in stock)", r.Respond(context.Background(), "do you have milk"))
	assert.Equal(t, []string{IntentAvailability}, rec.replies)
}

func TestRespondKeepsNoStateBetweenCalls(t *testing.T) {
	reader := &fakeReader{
		store: testStore(),
		items: []models.InventoryItem{{ID: "i1", StoreID: "store-1", Name: "Red Shirt", Quantity: 3}},
	}
	rec := &countingRecorder{}
	r := NewResponder(withStore(), reader, fixedRand(0), rec, quietLogger())

	first := r.Respond(context.Background(), "is there a red shirt in stock")
	firstReads := append([]models.InventoryFilter(nil), reader.filters...)

	r.Respond(context.Background(), "thanks")
	reader.filters = nil

	assert.Equal(t, first, r.Respond(context.Background(), "is there a red shirt in stock"))
	assert.Equal(t, firstReads, reader.filters)
	assert.Equal(t, []string{IntentAvailability, CategoryThanks, IntentAvailability}, rec.replies)
}

func TestExtractProductName(t *testing.T) {
	cases := map[string]string{
		"is there a red shirt in stock":         "red shirt",
		"do you have any apples":                "apples",
		"Do you have some Green Tea available?": "green tea",
		"availability of the laptop pro x":      "laptop pro x",
		"in stock: nothing":                     "",
		"do you have any":                       "",
		"is there anything else":                "anything else",
		"do you have somen noodles":             "somen noodles",
		"do you have any anchovies":             "anchovies",
		"hello":                                 "",
	}
	for input, want := range cases {
		assert.Equal(t, want, ExtractProductName(input), input)
	}
}

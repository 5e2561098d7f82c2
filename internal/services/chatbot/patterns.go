package chatbot

import "regexp"

// Reply categories, in match order
const (
	CategoryGreeting   = "greeting"
	CategoryStoreHours = "store_hours"
	CategoryInventory  = "inventory"
	CategoryLocation   = "location"
	CategoryThanks     = "thanks"
	CategoryFarewell   = "farewell"
)

// Intents answered from store data rather than templates
const (
	IntentAvailability = "availability"
	IntentHours        = "hours"
	MatchDefault       = "default"
)

// Pattern pairs a trigger with the replies it may produce
type Pattern struct {
	Category  string
	Trigger   *regexp.Regexp
	Responses []string
}

// DefaultReply is returned when nothing else matched.
const DefaultReply = "I'm here to help with information about our store, inventory, and services. How can I assist you today?"

var defaultPatterns = []Pattern{
	{
		Category: CategoryGreeting,
		Trigger:  regexp.MustCompile(`(?i)\b(hi|hello|hey|greetings)\b`),
		Responses: []string{
			"Hello! How can I help you today?",
			"Hi there! What can I do for you?",
			"Hey! Welcome to our store. How may I assist you?",
		},
	},
	{
		Category: CategoryStoreHours,
		Trigger:  regexp.MustCompile(`(?i)\b(store hours|opening hours|when (are you|is the store) open|hours of operation)\b`),
		Responses: []string{
			"Our store hours vary by location. Let me check the specific hours for you.",
			"I'd be happy to provide the opening hours for this store. Let me look that up for you.",
		},
	},
	{
		Category: CategoryInventory,
		Trigger:  regexp.MustCompile(`(?i)\b(inventory|stock|product|item|availability)\b`),
		Responses: []string{
			"I can help you check our inventory. What item are you looking for?",
			"We have various products in stock. Can you specify which item you're interested in?",
			"I'd be happy to check if we have a specific product available.",
		},
	},
	{
		Category: CategoryLocation,
		Trigger:  regexp.MustCompile(`(?i)\b(where|location|address|find|directions)\b`),
		Responses: []string{
			"Let me provide you with the store's address and location details.",
			"You can find our store at the address listed in the store information. Would you like directions?",
			"The store location is available in the store details. I can help you with directions if needed.",
		},
	},
	{
		Category: CategoryThanks,
		Trigger:  regexp.MustCompile(`(?i)\b(thanks|thank you|appreciate)\b`),
		Responses: []string{
			"You're welcome! Is there anything else I can help you with?",
			"Happy to help! Let me know if you have any other questions.",
			"No problem at all. Feel free to ask if you need anything else.",
		},
	},
	{
		Category: CategoryFarewell,
		Trigger:  regexp.MustCompile(`(?i)\b(bye|goodbye|see you|farewell)\b`),
		Responses: []string{
			"Goodbye! Have a great day!",
			"Thank you for chatting. Come back anytime!",
			"Take care! We look forward to serving you again.",
		},
	},
}

// DefaultPatterns returns a copy of the built-in pattern table.
func DefaultPatterns() []Pattern {
	out := make([]Pattern, len(defaultPatterns))
	copy(out, defaultPatterns)
	return out
}

// ResponsesFor returns the templates of a category, or nil.
func ResponsesFor(category string) []string {
	for _, p := range defaultPatterns {
		if p.Category == category {
			return append([]string(nil), p.Responses...)
		}
	}
	return nil
}

var (
	availabilityTrigger = regexp.MustCompile(`(?i)\b(do you have|is there|availability of|in stock)\b`)
	productCapture      = regexp.MustCompile(`(?i)\b(do you have|is there|availability of|in stock)\s+(?:(?:any|some)\s+)?([a-z\s]+)`)
	hoursTrigger        = regexp.MustCompile(`(?i)\b(hours|open|close|opening|closing)\b`)

	leadingFillers  = regexp.MustCompile(`^(?:(?:a|an|the|any|some)(?:\s+|$))+`)
	trailingFillers = regexp.MustCompile(`(?:\s+(?:in stock|available|here|today|right now|at the moment|at this store))+$`)
)

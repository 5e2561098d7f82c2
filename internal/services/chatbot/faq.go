package chatbot

import (
	"regexp"
	"strings"
	"sync"
)

// Requirements describes the context an FAQ answer assumes. It is
// informational: matching does not check it.
type Requirements struct {
	StoreID bool     `json:"requires_store_id,omitempty"`
	Auth    bool     `json:"requires_auth,omitempty"`
	Roles   []string `json:"requires_role,omitempty"`
}

// TrainingEntry is one FAQ category with its phrasings and answers.
// Phrasings may hold {variable} placeholders matching a single word.
type TrainingEntry struct {
	Category     string       `json:"category"`
	Patterns     []string     `json:"patterns"`
	Responses    []string     `json:"responses"`
	Requirements Requirements `json:"requirements"`
}

var trainingData = []TrainingEntry{
	{
		Category: "location",
		Patterns: []string{
			"where is the store located",
			"what is the store address",
			"store location",
			"where can I find the store",
			"store directions",
		},
		Responses: []string{
			"The store is located at {store.address}. You can find directions on our map.",
			"You can find us at {store.address}. Check our map for detailed directions.",
		},
		Requirements: Requirements{StoreID: true},
	},
	{
		Category: "hours",
		Patterns: []string{
			"what are the opening hours",
			"when is the store open",
			"store hours",
			"business hours",
			"opening times",
		},
		Responses: []string{
			"Our store is open {store.opening_hours}.",
			"You can visit us during these hours: {store.opening_hours}.",
		},
		Requirements: Requirements{StoreID: true},
	},
	{
		Category: "availability",
		Patterns: []string{
			"is the store open now",
			"are you open",
			"store open",
			"currently open",
		},
		Responses: []string{
			"Yes, we are currently open!",
			"No, we are currently closed. We'll be open {store.next_opening_time}.",
		},
		Requirements: Requirements{StoreID: true},
	},
	{
		Category: "inventory",
		Patterns: []string{
			"what products do you have",
			"show me your inventory",
			"what items are available",
			"product list",
			"available items",
		},
		Responses: []string{
			"We have several items in stock. Here are some highlights: {inventory_summary}",
			"Our current inventory includes: {inventory_summary}",
		},
		Requirements: Requirements{StoreID: true},
	},
	{
		Category: "product_availability",
		Patterns: []string{
			"do you have {product}",
			"is {product} in stock",
			"product availability",
			"stock status",
		},
		Responses: []string{
			"Yes, we have {product} in stock. It's priced at ${price}.",
			"Sorry, {product} is currently out of stock. We expect to restock soon.",
		},
		Requirements: Requirements{StoreID: true},
	},
	{
		Category: "store_management",
		Patterns: []string{
			"how do I add a store",
			"create new store",
			"register store",
			"add store",
		},
		Responses: []string{
			"To add a store, you need to be a registered store owner. Please sign up or log in to your account.",
			"Store registration is available for store owners. Please ensure you're logged in with the correct role.",
		},
		Requirements: Requirements{Auth: true, Roles: []string{"store_owner"}},
	},
	{
		Category: "inventory_management",
		Patterns: []string{
			"how do I manage inventory",
			"update inventory",
			"edit stock",
			"manage products",
		},
		Responses: []string{
			"You can manage your inventory through the store dashboard. Please log in to access these features.",
			"Inventory management is available in your store dashboard. Make sure you're logged in as a store owner.",
		},
		Requirements: Requirements{Auth: true, Roles: []string{"store_owner"}},
	},
	{
		Category: "account",
		Patterns: []string{
			"how do I sign up",
			"create account",
			"register",
			"new account",
		},
		Responses: []string{
			"You can create an account by clicking the 'Sign Up' button in the top right corner.",
			"To create an account, visit our sign-up page and follow the registration process.",
		},
	},
	{
		Category: "account",
		Patterns: []string{
			"how do I log in",
			"sign in",
			"login",
			"access account",
		},
		Responses: []string{
			"You can log in using the 'Sign In' button in the top right corner.",
			"To access your account, click the 'Sign In' button and enter your credentials.",
		},
	},
	{
		Category: "help",
		Patterns: []string{
			"help",
			"support",
			"how can I help you",
			"what can you do",
			"assistance",
		},
		Responses: []string{
			"I can help you with store locations, opening hours, product availability, and account management. What would you like to know?",
			"I'm here to help! I can provide information about stores, inventory, and help you manage your account. What do you need?",
		},
	},
	{
		Category: "support",
		Patterns: []string{
			"contact support",
			"customer service",
			"get help",
			"support contact",
		},
		Responses: []string{
			"For additional support, please contact our customer service team at support@storefinder.com",
			"You can reach our support team at support@storefinder.com for any questions or concerns.",
		},
	},
}

var placeholder = regexp.MustCompile(`\{([^}]+)\}`)

// compiledPattern is a phrasing turned into a regexp with one capture
// group per placeholder, in order.
type compiledPattern struct {
	re    *regexp.Regexp
	names []string
}

// compiled holds patterns keyed by their lowercased text. The built-in
// table is compiled at init; other tables are compiled on first use.
var compiled sync.Map

func init() {
	for _, entry := range trainingData {
		for _, pattern := range entry.Patterns {
			compilePattern(pattern)
		}
	}
}

// TrainingData returns the FAQ table
func TrainingData() []TrainingEntry {
	out := make([]TrainingEntry, len(trainingData))
	copy(out, trainingData)
	return out
}

// FAQMatch is the result of FindBestMatch
type FAQMatch struct {
	Entry     TrainingEntry     `json:"entry"`
	Pattern   string            `json:"pattern"`
	Variables map[string]string `json:"variables,omitempty"`
}

// FindBestMatch returns the first entry with a phrasing equal to or
// contained in the input. Placeholders match one word.
func FindBestMatch(userInput string, entries []TrainingEntry) *FAQMatch {
	normalized := strings.ToLower(strings.TrimSpace(userInput))
	if normalized == "" {
		return nil
	}

	for _, entry := range entries {
		for _, pattern := range entry.Patterns {
			if normalized == strings.ToLower(pattern) {
				return &FAQMatch{Entry: entry, Pattern: pattern, Variables: map[string]string{}}
			}
			if cp := compilePattern(pattern); cp.re.MatchString(normalized) {
				return &FAQMatch{Entry: entry, Pattern: pattern, Variables: cp.variables(normalized)}
			}
		}
	}
	return nil
}

// ExtractVariables returns the words bound to each {placeholder} of pattern.
func ExtractVariables(userInput, pattern string) map[string]string {
	return compilePattern(pattern).variables(strings.ToLower(userInput))
}

func (cp *compiledPattern) variables(input string) map[string]string {
	vars := map[string]string{}
	if len(cp.names) == 0 {
		return vars
	}
	m := cp.re.FindStringSubmatch(input)
	if m == nil {
		return vars
	}
	for i, name := range cp.names {
		vars[name] = m[i+1]
	}
	return vars
}

func compilePattern(pattern string) *compiledPattern {
	lowered := strings.ToLower(pattern)
	if cp, ok := compiled.Load(lowered); ok {
		return cp.(*compiledPattern)
	}

	parts := placeholder.Split(lowered, -1)
	quoted := make([]string, len(parts))
	for i, part := range parts {
		quoted[i] = regexp.QuoteMeta(part)
	}
	cp := &compiledPattern{re: regexp.MustCompile(strings.Join(quoted, `([^\s]+)`))}
	for _, m := range placeholder.FindAllStringSubmatch(lowered, -1) {
		cp.names = append(cp.names, m[1])
	}

	actual, _ := compiled.LoadOrStore(lowered, cp)
	return actual.(*compiledPattern)
}

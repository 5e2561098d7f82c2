package chatbot

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindBestMatchExact(t *testing.T) {
	match := FindBestMatch("Store Hours", TrainingData())
	require.NotNil(t, match)
	assert.Equal(t, "hours", match.Entry.Category)
	assert.True(t, match.Entry.Requirements.StoreID)
}

func TestFindBestMatchPlaceholder(t *testing.T) {
	match := FindBestMatch("do you have bananas today", TrainingData())
	require.NotNil(t, match)
	assert.Equal(t, "product_availability", match.Entry.Category)
	assert.Equal(t, map[string]string{"product": "bananas"}, match.Variables)
}

func TestFindBestMatchIgnoresRequirements(t *testing.T) {
	// store owner guidance is returned regardless of who asks
	match := FindBestMatch("how do I add a store", TrainingData())
	require.NotNil(t, match)
	assert.Equal(t, "store_management", match.Entry.Category)
	assert.Equal(t, []string{"store_owner"}, match.Entry.Requirements.Roles)
}

func TestFindBestMatchNone(t *testing.T) {
	assert.Nil(t, FindBestMatch("quantum chromodynamics", TrainingData()))
	assert.Nil(t, FindBestMatch("   ", TrainingData()))
}

func TestExtractVariables(t *testing.T) {
	assert.Equal(t, map[string]string{"product": "milk"}, ExtractVariables("is milk in stock", "is {product} in stock"))
	assert.Empty(t, ExtractVariables("store hours", "store hours"))
	assert.Empty(t, ExtractVariables("nothing alike", "is {product} in stock"))
}

func TestTrainingPatternsCompiledOnce(t *testing.T) {
	for _, entry := range TrainingData() {
		for _, pattern := range entry.Patterns {
			_, ok := compiled.Load(strings.ToLower(pattern))
			assert.True(t, ok, pattern)
		}
	}

	before := compilePattern("do you have {product}")
	FindBestMatch("do you have pears", TrainingData())
	assert.Same(t, before, compilePattern("do you have {product}"))
}

func TestFindBestMatchCustomTable(t *testing.T) {
	entries := []TrainingEntry{{
		Category:  "returns",
		Patterns:  []string{"can I return {item} after {days} days"},
		Responses: []string{"Returns are accepted within 30 days."},
	}}

	match := FindBestMatch("Can I return shoes after 40 days?", entries)
	require.NotNil(t, match)
	assert.Equal(t, map[string]string{"item": "shoes", "days": "40"}, match.Variables)
	assert.Same(t, compilePattern("can I return {item} after {days} days"), compilePattern("CAN I RETURN {item} AFTER {days} DAYS"))
}

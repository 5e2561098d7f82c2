// Package validation checks store and inventory input before it is saved.
package validation

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/storefinder-go/internal/models"
)

var (
	storeNamePattern = regexp.MustCompile(`^[a-zA-Z0-9\s\-'&]{3,}$`)
	digitPattern     = regexp.MustCompile(`\d`)
	nonDigitPattern  = regexp.MustCompile(`\D`)
)

// Errors maps field names to their first problem
type Errors map[string]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, len(fields))
	for i, field := range fields {
		parts[i] = fmt.Sprintf("%s: %s", field, e[field])
	}
	return strings.Join(parts, "; ")
}

func (e Errors) orNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// StoreName returns the problem with a store name, or ""
func StoreName(name string) string {
	trimmed := strings.TrimSpace(name)
	switch {
	case trimmed == "":
		return "Store name is required"
	case len(trimmed) < 3:
		return "Store name must be at least 3 characters long"
	case !storeNamePattern.MatchString(name):
		return "Store name can only contain letters, numbers, spaces, hyphens, apostrophes, and ampersands"
	}
	return ""
}

// Address returns the problem with a street address, or ""
func Address(address string) string {
	trimmed := strings.TrimSpace(address)
	switch {
	case trimmed == "":
		return "Address is required"
	case len(trimmed) < 10 || !digitPattern.MatchString(address):
		return "Please enter a valid address with street number"
	}
	return ""
}

// Phone returns the problem with an optional phone number, or ""
func Phone(phone string) string {
	if strings.TrimSpace(phone) == "" {
		return ""
	}
	if len(nonDigitPattern.ReplaceAllString(phone, "")) != 10 {
		return "Phone number must be exactly 10 digits"
	}
	return ""
}

// Coordinates returns the problem with a latitude/longitude pair, or ""
func Coordinates(lat, lng float64) string {
	if math.IsNaN(lat) || math.IsNaN(lng) || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return "Coordinates are out of range"
	}
	return ""
}

// Store validates a store before create or update
func Store(s *models.Store) error {
	errs := Errors{}
	if msg := StoreName(s.Name); msg != "" {
		errs["name"] = msg
	}
	if msg := Address(s.Address); msg != "" {
		errs["address"] = msg
	}
	if msg := Phone(s.Phone); msg != "" {
		errs["phone"] = msg
	}
	if msg := Coordinates(s.Latitude, s.Longitude); msg != "" {
		errs["location"] = msg
	}
	return errs.orNil()
}

// InventoryItem validates an item before create or update. Quantity and
// price are pointers so a missing field can be told apart from zero.
func InventoryItem(name string, quantity *int, price *float64) error {
	errs := Errors{}
	if strings.TrimSpace(name) == "" {
		errs["name"] = "Name is required"
	}
	switch {
	case quantity == nil:
		errs["quantity"] = "Quantity is required"
	case *quantity < 0:
		errs["quantity"] = "Quantity cannot be negative"
	}
	switch {
	case price == nil:
		errs["price"] = "Price is required"
	case *price < 0:
		errs["price"] = "Price cannot be negative"
	}
	return errs.orNil()
}

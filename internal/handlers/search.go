package handlers

import (
	"net/http"
	"strconv"

	"github.com/storefinder-go/internal/i18n"
	"github.com/storefinder-go/internal/models"
	"github.com/storefinder-go/internal/services/geo"
	"github.com/storefinder-go/internal/validation"
)

// Search returns stores and products whose names contain ?q=
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	results, err := h.search.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeStorageError(w, r, err, i18n.MsgNotFound)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// Suggestions returns the type-ahead list for ?q=
func (h *Handler) Suggestions(w http.ResponseWriter, r *http.Request) {
	suggestions, err := h.search.Suggestions(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeStorageError(w, r, err, i18n.MsgNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"suggestions": suggestions})
}

// locatedStore adapts a store to the geo filter
type locatedStore struct {
	models.Store
}

func (s locatedStore) DisplayName() string { return s.Name }
func (s locatedStore) Location() geo.Point {
	return geo.Point{Lat: s.Latitude, Lng: s.Longitude}
}

type nearbyStore struct {
	models.Store
	DistanceKm float64 `json:"distance_km"`
}

// NearbyStores returns stores within ?radius= km of ?lat=&lng= whose name
// contains ?q=. Missing coordinates fall back to the default map centre.
func (h *Handler) NearbyStores(w http.ResponseWriter, r *http.Request) {
	origin, _, ok := h.userPoint(w, r)
	if !ok {
		return
	}

	radius := h.config.Map.DefaultRadiusKm
	if raw := r.URL.Query().Get("radius"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 {
			h.writeError(w, r, http.StatusBadRequest, i18n.MsgInvalidRequest, nil)
			return
		}
		radius = parsed
	}

	stores, err := h.storage.ListStores(r.Context())
	if err != nil {
		h.writeStorageError(w, r, err, i18n.MsgNotFound)
		return
	}

	located := make([]locatedStore, len(stores))
	for i, s := range stores {
		located[i] = locatedStore{s}
	}

	matches := geo.Within(located, origin, radius, r.URL.Query().Get("q"))
	out := make([]nearbyStore, len(matches))
	for i, m := range matches {
		out[i] = nearbyStore{Store: m.Store, DistanceKm: geo.Distance(origin, m.Location())}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"center":    origin,
		"radius_km": radius,
		"stores":    out,
	})
}

type mapMarker struct {
	StoreID string `json:"store_id"`
	Name    string `json:"name"`
	geo.Point
	geo.Position
}

type userMarker struct {
	geo.Point
	geo.Position
	Default bool `json:"default"`
}

// Map places every store and the user on the percentage map. Bounds come
// from the stores; the user is projected into them.
func (h *Handler) Map(w http.ResponseWriter, r *http.Request) {
	user, isDefault, ok := h.userPoint(w, r)
	if !ok {
		return
	}

	stores, err := h.storage.ListStores(r.Context())
	if err != nil {
		h.writeStorageError(w, r, err, i18n.MsgNotFound)
		return
	}

	points := make([]geo.Point, len(stores))
	for i, s := range stores {
		points[i] = geo.Point{Lat: s.Latitude, Lng: s.Longitude}
	}
	bounds := geo.NewBounds(points)

	markers := make([]mapMarker, len(stores))
	for i, s := range stores {
		markers[i] = mapMarker{
			StoreID:  s.ID,
			Name:     s.Name,
			Point:    points[i],
			Position: bounds.Project(points[i]),
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"stores": markers,
		"user": userMarker{
			Point:    user,
			Position: bounds.Project(user),
			Default:  isDefault,
		},
		"location_timeout_ms": h.config.Map.LocationTimeout.Milliseconds(),
	})
}

// userPoint reads ?lat=&lng=. Both absent gives the default centre.
func (h *Handler) userPoint(w http.ResponseWriter, r *http.Request) (geo.Point, bool, bool) {
	q := r.URL.Query()
	rawLat, rawLng := q.Get("lat"), q.Get("lng")
	if rawLat == "" && rawLng == "" {
		return geo.Point{Lat: h.config.Map.DefaultLat, Lng: h.config.Map.DefaultLng}, true, true
	}

	lat, errLat := strconv.ParseFloat(rawLat, 64)
	lng, errLng := strconv.ParseFloat(rawLng, 64)
	if errLat != nil || errLng != nil || validation.Coordinates(lat, lng) != "" {
		h.writeError(w, r, http.StatusBadRequest, i18n.MsgInvalidLocation, nil)
		return geo.Point{}, false, false
	}
	return geo.Point{Lat: lat, Lng: lng}, false, true
}

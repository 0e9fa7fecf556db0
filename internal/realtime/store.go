package realtime

import (
	"slices"
	"sync"
	"time"
)

// Alert is a service alert from the GTFS-Realtime feed.
type Alert struct {
	ID          string   `json:"id"`
	Header      string   `json:"header"`
	Description string   `json:"description,omitempty"`
	Effect      string   `json:"effect"` // "NO_SERVICE", "DETOUR", ...
	Cause       string   `json:"cause"`
	RouteIDs    []string `json:"route_ids,omitempty"`
	StopIDs     []string `json:"stop_ids,omitempty"`
}

// Store holds the most recent alerts.
type Store struct {
	mu        sync.RWMutex
	alerts    []Alert
	updatedAt time.Time
}

// NewStore creates an empty realtime store.
func NewStore() *Store {
	return &Store{}
}

// SetAlerts replaces all alerts.
func (s *Store) SetAlerts(alerts []Alert, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = alerts
	s.updatedAt = at
}

// UpdatedAt returns when alerts were last replaced; zero if never.
func (s *Store) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

// AlertsForRoute returns alerts affecting a route.
func (s *Store) AlertsForRoute(routeID string) []Alert {
	return s.filter(func(a Alert) bool { return slices.Contains(a.RouteIDs, routeID) })
}

// AlertsForStop returns alerts affecting a stop.
func (s *Store) AlertsForStop(stopID string) []Alert {
	return s.filter(func(a Alert) bool { return slices.Contains(a.StopIDs, stopID) })
}

// AllAlerts returns all active alerts.
func (s *Store) AllAlerts() []Alert {
	return s.filter(func(Alert) bool { return true })
}

func (s *Store) filter(keep func(Alert) bool) []Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []Alert{}
	for _, a := range s.alerts {
		if keep(a) {
			result = append(result, a)
		}
	}
	return result
}

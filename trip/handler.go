package trip

import (
	"fmt"
	"strings"
	"sync"
)

// Handler collects trips for one component.
//
// Stumbles and trips are kept apart so a component can keep going through
// minor issues while still reporting them. Handler is safe for concurrent use;
// sequencer timers and callers record into it from different goroutines.
type Handler struct {
	component string
	policy    *Policy

	mu       sync.Mutex
	trips    []*Trip
	stumbles []*Trip
}

// Policy decides when a component should stop.
type Policy struct {
	// StopOnFall stops the component at the first fall.
	StopOnFall bool

	// MaxStumbles is the number of stumbles tolerated (0 = unlimited).
	MaxStumbles int
}

// DefaultPolicy stops on any fall and tolerates ten stumbles.
func DefaultPolicy() *Policy {
	return &Policy{
		StopOnFall:  true,
		MaxStumbles: 10,
	}
}

// NewHandler creates a handler for a component. A nil policy means DefaultPolicy.
func NewHandler(component string, policy *Policy) *Handler {
	if policy == nil {
		policy = DefaultPolicy()
	}

	return &Handler{
		component: component,
		policy:    policy,
		trips:     make([]*Trip, 0),
		stumbles:  make([]*Trip, 0),
	}
}

// Component returns the name the handler reports under.
func (h *Handler) Component() string {
	return h.component
}

// Record adds a trip.
func (h *Handler) Record(trip *Trip) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if trip.Severity == Stumble {
		h.stumbles = append(h.stumbles, trip)
	} else {
		h.trips = append(h.trips, trip)
	}
}

// ShouldContinue reports whether the component may keep going.
func (h *Handler) ShouldContinue() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.policy.StopOnFall {
		for _, trip := range h.trips {
			if trip.IsFall() {
				return false
			}
		}
	}

	if h.policy.MaxStumbles > 0 && len(h.stumbles) > h.policy.MaxStumbles {
		return false
	}

	return true
}

// HasTrips returns true if any non-stumble trip was recorded.
func (h *Handler) HasTrips() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.trips) > 0
}

// GetTrips returns a copy of the recorded trips.
func (h *Handler) GetTrips() []*Trip {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*Trip(nil), h.trips...)
}

// GetStumbles returns a copy of the recorded stumbles.
func (h *Handler) GetStumbles() []*Trip {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*Trip(nil), h.stumbles...)
}

// Summary gives a one-line count.
func (h *Handler) Summary() string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.trips) == 0 && len(h.stumbles) == 0 {
		return fmt.Sprintf("[%s] No issues", h.component)
	}
	return fmt.Sprintf("[%s] %d trips, %d stumbles", h.component, len(h.trips), len(h.stumbles))
}

// DetailedReport lists every trip and stumble.
func (h *Handler) DetailedReport() string {
	var report strings.Builder

	report.WriteString(fmt.Sprintf("=== %s Component Report ===\n", h.component))
	report.WriteString(h.Summary() + "\n")

	trips, stumbles := h.GetTrips(), h.GetStumbles()

	if len(trips) > 0 {
		report.WriteString("\nTrips:\n")
		for i, trip := range trips {
			report.WriteString(fmt.Sprintf("%d. %s\n", i+1, trip.DetailedString()))
		}
	}

	if len(stumbles) > 0 {
		report.WriteString("\nStumbles:\n")
		for i, stumble := range stumbles {
			report.WriteString(fmt.Sprintf("%d. %s\n", i+1, stumble.DetailedString()))
		}
	}

	return report.String()
}

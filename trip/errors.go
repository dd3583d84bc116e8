// Package trip provides structured errors for cue sheets, sequencer
// lifecycle misuse and headless stage direction.
//
// A run that goes wrong "trips": a stumble is noted and the show goes on, an
// error spoils the take, a fall stops the stage.
package trip

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Trip types used across cuesheet.
const (
	TypeCueSheet  = "cue_sheet"  // malformed cue sheet configuration
	TypeLifecycle = "lifecycle"  // use of a sequencer after teardown
	TypeAssertion = "assertion"  // stage director expectation not met
	TypeTimeout   = "timeout"    // stage director wait expired
	TypeRender    = "render"     // frame or report could not be produced
	TypeModel     = "model"      // model returned an unusable state or panicked
)

// Trip is an error with a category, a severity and debugging context.
//
// Example:
//
//	err := NewTrip(TypeCueSheet, "delays must be strictly increasing",
//	    Context{"index": 2, "delay": 300 * time.Millisecond})
type Trip struct {
	Type      string    // Error category
	Message   string    // Human-readable description
	Context   Context   // Additional debugging information
	Timestamp time.Time // When the trip happened
	Severity  Severity  // How serious it is
}

// Context carries key/value details about a trip.
type Context map[string]interface{}

// Severity indicates how a trip should be handled.
type Severity int

const (
	// Stumble is noted but does not invalidate the run.
	Stumble Severity = iota

	// Error invalidates the result of the current operation.
	Error

	// Fall stops everything that follows.
	Fall
)

func (s Severity) String() string {
	switch s {
	case Stumble:
		return "stumble"
	case Error:
		return "error"
	case Fall:
		return "fall"
	default:
		return "unknown"
	}
}

// NewTrip creates a trip with Error severity.
func NewTrip(errorType, message string, context Context) *Trip {
	return newTrip(errorType, message, context, Error)
}

// NewStumble creates a trip with Stumble severity.
func NewStumble(errorType, message string, context Context) *Trip {
	return newTrip(errorType, message, context, Stumble)
}

// NewFall creates a trip with Fall severity.
func NewFall(errorType, message string, context Context) *Trip {
	return newTrip(errorType, message, context, Fall)
}

func newTrip(errorType, message string, context Context, severity Severity) *Trip {
	return &Trip{
		Type:      errorType,
		Message:   message,
		Context:   context,
		Timestamp: time.Now(),
		Severity:  severity,
	}
}

// WithSeverity sets the severity level.
func (t *Trip) WithSeverity(severity Severity) *Trip {
	t.Severity = severity
	return t
}

// Error implements the error interface.
func (t *Trip) Error() string {
	return fmt.Sprintf("[%s:%s] %s", t.Type, t.Severity, t.Message)
}

// Is reports whether target is a trip of the same type, so callers can use
// errors.Is(err, &trip.Trip{Type: trip.TypeCueSheet}).
func (t *Trip) Is(target error) bool {
	other, ok := target.(*Trip)
	if !ok {
		return false
	}
	return other.Type == t.Type
}

// CanRecover returns true if work can continue despite this trip.
func (t *Trip) CanRecover() bool {
	return t.Severity == Stumble
}

// IsFall returns true if this trip must stop everything that follows.
func (t *Trip) IsFall() bool {
	return t.Severity == Fall
}

// GetContext returns a context value if it exists.
func (t *Trip) GetContext(key string) (interface{}, bool) {
	if t.Context == nil {
		return nil, false
	}
	val, exists := t.Context[key]
	return val, exists
}

// DetailedString returns the trip with its timestamp and context, keys sorted.
func (t *Trip) DetailedString() string {
	var details strings.Builder

	details.WriteString(t.Error())
	details.WriteString(fmt.Sprintf("\n  Time: %s", t.Timestamp.Format("15:04:05.000")))

	if len(t.Context) > 0 {
		keys := make([]string, 0, len(t.Context))
		for key := range t.Context {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		details.WriteString("\n  Context:")
		for _, key := range keys {
			details.WriteString(fmt.Sprintf("\n    %s: %v", key, t.Context[key]))
		}
	}

	return details.String()
}

package module

import (
	"strings"
	"unicode"
)

// EventHandlerPrefix marks wire methods that handle events: a module opts
// into event "door_open" by exposing the wire method "on_door_open".
const EventHandlerPrefix = "on_"

// EventHandlerName returns the wire method name handling the given event.
func EventHandlerName(event string) string {
	return EventHandlerPrefix + event
}

// HandledEvent returns the event a wire method name handles, or false if
// the name is not an event handler.
func HandledEvent(wireName string) (string, bool) {
	event, ok := strings.CutPrefix(wireName, EventHandlerPrefix)
	if !ok || event == "" {
		return "", false
	}
	return event, true
}

// WireName converts an exported Go method name to its snake_case wire name:
// "Toggle" becomes "toggle", "OnDoorOpen" becomes "on_door_open",
// "HTTPStatus" becomes "http_status". Acronym runs stay together.
func WireName(goName string) string {
	var b strings.Builder
	b.Grow(len(goName) + 4)

	runes := []rune(goName)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				// Boundary after a lowercase/digit, or at the end of an
				// acronym run (upper followed by lower).
				if !unicode.IsUpper(prev) ||
					(i+1 < len(runes) && unicode.IsLower(runes[i+1])) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

package rooms

// Audience selects who receives an outbound event.
type Audience int

const (
	ToUser Audience = iota
	ToPlayers
	ToSpectators
	ToRoom
)

// Event is one outbound notification. Recipients is resolved by the room
// actor against its current membership at emission time, so sinks never
// need to know room state.
type Event struct {
	Name       string
	Audience   Audience
	User       string // set when Audience == ToUser
	Recipients []string
	Payload    map[string]interface{}
}

// Sink consumes events for delivery. Implementations must not block:
// the room actor calls this inline and relies on it to enqueue and return.
type Sink func(roomID string, ev Event)

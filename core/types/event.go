package types

// Event is a typed record of an engine state transition, collected during a
// transaction and surfaced to observers after commit.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

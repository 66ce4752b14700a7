package types

// Event is the indexable payload appended to state for every successful
// operation. Attributes are flat strings so downstream consumers do not need
// schema knowledge to filter.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

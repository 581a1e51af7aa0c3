package tag

// Record is a provisioned tag credential, keyed by TagID. PINUpdatedAt is
// advisory only; nothing compares against it.
type Record struct {
	TagID        string `json:"tagId"`
	PIN          string `json:"pin"`
	Active       bool   `json:"active"`
	PINUpdatedAt string `json:"pinUpdatedAt,omitempty"`
}

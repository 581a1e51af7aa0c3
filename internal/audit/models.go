package audit

// Kind identifies which operation produced an audit record. Consumer verify
// predates the owner flows and writes no kind; its records are recognized by
// a non-empty Status instead.
type Kind string

const (
	KindOwnerLogin     Kind = "OWNER_LOGIN"
	KindOwnerChangePIN Kind = "OWNER_CHANGE_PIN"
	KindTagProvisioned Kind = "TAG_PROVISIONED"
)

// ReasonOldPINMismatch marks a rejected PIN change in the audit trail.
const ReasonOldPINMismatch = "OLD_PIN_MISMATCH"

// Record is one append-only entry describing a verification, login,
// PIN-change, or provisioning attempt. PIN values never appear in a Record on
// any path. Field presence varies by operation:
//
//   - verify sets ID (its own requestId), Status, Message, IP, UA
//   - owner login sets Kind and Outcome
//   - PIN change sets Kind plus Reason or Error
type Record struct {
	// ID is the store key when the writer assigns one (verify keys its audit
	// record by requestId). Empty lets the store pick an identifier.
	ID string `json:"id,omitempty"`

	RequestID string `json:"requestId"`
	TS        string `json:"ts"`
	Kind      Kind   `json:"kind,omitempty"`
	TagID     string `json:"tagId"`
	OK        bool   `json:"ok"`

	Status  string `json:"status,omitempty"`
	Outcome string `json:"outcome,omitempty"`
	Message string `json:"message,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Error   string `json:"error,omitempty"`

	IP     string `json:"ip,omitempty"`
	UA     string `json:"ua,omitempty"`
	Client string `json:"client,omitempty"`
}

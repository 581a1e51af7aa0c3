package verify

// Status is the authenticity verdict vocabulary. Consumer verification and
// owner login deliberately use different words so a client cannot replay one
// endpoint's response against the other.
type Status string

const (
	StatusAuthentic        Status = "AUTHENTIC"
	StatusNotVerified      Status = "NOT_VERIFIED"
	StatusOwnerAuthentic   Status = "OWNER_AUTHENTIC"
	StatusOwnerNotVerified Status = "OWNER_NOT_VERIFIED"
)

// VerifyRequest is the consumer verification payload.
type VerifyRequest struct {
	TagID string `json:"tagId"`
	PIN   string `json:"pin"`
}

// OwnerLoginRequest is the owner login payload.
type OwnerLoginRequest struct {
	TagID string `json:"tagId"`
	PIN   string `json:"pin"`
}

// ChangePINRequest is the owner PIN change payload.
type ChangePINRequest struct {
	TagID  string `json:"tagId"`
	OldPIN string `json:"oldPin"`
	NewPIN string `json:"newPin"`
}

// ProvisionRequest creates or replaces a tag record. Enterprise surface, not
// reachable by consumers.
type ProvisionRequest struct {
	TagID  string `json:"tagId"`
	PIN    string `json:"pin"`
	Active bool   `json:"active"`
}

// VerifyResponse is the consumer verification envelope. OK means "the
// verification procedure executed", never "the item is authentic"; the verdict
// is carried solely in Status.
type VerifyResponse struct {
	HTTPStatus int `json:"-"`

	OK        bool     `json:"ok"`
	Status    Status   `json:"status"`
	Message   string   `json:"message,omitempty"`
	RequestID string   `json:"requestId"`
	TagID     string   `json:"tagId"`
	TS        string   `json:"ts"`
	Hints     []string `json:"hints,omitempty"`
}

// OwnerLoginResponse is the owner login envelope. The outer OK is decoupled
// from Status exactly as in VerifyResponse.
type OwnerLoginResponse struct {
	HTTPStatus int `json:"-"`

	OK        bool   `json:"ok"`
	Status    Status `json:"status"`
	Message   string `json:"message"`
	RequestID string `json:"requestId"`
	TagID     string `json:"tagId"`
	TS        string `json:"ts"`
}

// ChangePINResponse is the PIN change envelope. Error branches omit tagId,
// matching the endpoint's historical contract.
type ChangePINResponse struct {
	HTTPStatus int `json:"-"`

	OK        bool   `json:"ok"`
	Message   string `json:"message"`
	RequestID string `json:"requestId"`
	TagID     string `json:"tagId,omitempty"`
	TS        string `json:"ts"`
}

// ProvisionResponse is the enterprise provisioning envelope.
type ProvisionResponse struct {
	HTTPStatus int `json:"-"`

	OK        bool   `json:"ok"`
	Message   string `json:"message"`
	RequestID string `json:"requestId"`
	TagID     string `json:"tagId,omitempty"`
	TS        string `json:"ts"`
}

package domain

// KeyringEvent is a lifecycle notification sent to the host
type KeyringEvent string

const (
	EventAccountCreated  KeyringEvent = "notify:accountCreated"
	EventAccountUpdated  KeyringEvent = "notify:accountUpdated"
	EventAccountDeleted  KeyringEvent = "notify:accountDeleted"
	EventRequestApproved KeyringEvent = "notify:requestApproved"
	EventRequestRejected KeyringEvent = "notify:requestRejected"
)

// AccountCreatedPayload is emitted after a wallet is persisted
type AccountCreatedPayload struct {
	Account Account `json:"account"`
}

type AccountUpdatedPayload struct {
	Account Account `json:"account"`
}

type AccountDeletedPayload struct {
	ID string `json:"id"`
}

type RequestApprovedPayload struct {
	ID     string `json:"id"`
	Result any    `json:"result"`
}

type RequestRejectedPayload struct {
	ID string `json:"id"`
}

// Event pairs a kind with its payload for fan-out to subscribers
type Event struct {
	Kind    KeyringEvent `json:"kind"`
	Payload any          `json:"payload"`
}

package notifications

// Payload is a desktop notification. Empty title and content means nothing to send.
type Payload struct {
	Title   string
	Content string
}

// Sender delivers payloads. Implementations log delivery errors instead of returning them.
type Sender interface {
	Send(payload Payload)
}

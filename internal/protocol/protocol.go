// Package protocol defines the wire formats pedalkeys speaks: GATT sensor
// notifications, the Zwift Play controller protocol, the overlay datagram and
// the WebSocket status messages.
package protocol

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// TypeStatus is pushed by the server whenever the overlay refreshes
	TypeStatus MessageType = "status"

	// TypeHello is sent by the server once, right after the upgrade
	TypeHello MessageType = "hello"
)

// Message is the generic container for all WebSocket messages
type Message struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// HelloPayload is the payload for TypeHello
type HelloPayload struct {
	Version string `json:"version"`
}

// StatusPayload is the payload for TypeStatus
type StatusPayload struct {
	Cadence    float64           `json:"cadence"`
	Source     string            `json:"source"`
	Band       string            `json:"band"`
	PowerWatts *int              `json:"power_watts,omitempty"`
	Keys       []string          `json:"keys"`
	Paused     bool              `json:"paused"`
	Devices    map[string]string `json:"devices"`
	Timestamp  int64             `json:"ts"` // Unix ms timestamp
}

package device

import (
	"context"
	"time"
)

// Advertisement is one device seen during a scan
type Advertisement struct {
	Name    string
	Address string
	RSSI    int
}

// Transport is the Bluetooth stack as pedalkeys sees it
type Transport interface {
	// Scan listens for advertisements for up to timeout
	Scan(ctx context.Context, timeout time.Duration) ([]Advertisement, error)

	// Connect opens a link to the device at address
	Connect(ctx context.Context, address string) (Conn, error)
}

// Conn is one open link. A Conn is not reused after Done is closed.
type Conn interface {
	// Subscribe enables notifications (or indications) on a characteristic
	Subscribe(service, characteristic string) (<-chan []byte, error)

	// Write sends data to a characteristic without waiting for a response
	Write(service, characteristic string, data []byte) error

	// Disconnect closes the link; Done is closed afterwards
	Disconnect() error

	// Done is closed when the link drops for any reason
	Done() <-chan struct{}
}

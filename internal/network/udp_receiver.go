package network

import (
	"context"
	"fmt"
	"net"

	"pedalkeys/internal/protocol"

	log "github.com/sirupsen/logrus"
)

// OverlayReceiver listens for overlay datagrams the way the overlay window
// does. `pedalkeys watch --udp` uses it.
type OverlayReceiver struct {
	conn *net.UDPConn

	// OnPacket is called for every well-formed datagram
	OnPacket func(protocol.OverlayPacket)
}

// ListenOverlay binds addr ("127.0.0.1:49555"; port 0 picks a free port)
func ListenOverlay(addr string) (*OverlayReceiver, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	log.Infof("UDP Receiver: Listening on %s", conn.LocalAddr())
	return &OverlayReceiver{conn: conn}, nil
}

// Addr is the bound address
func (r *OverlayReceiver) Addr() *net.UDPAddr {
	return r.conn.LocalAddr().(*net.UDPAddr)
}

// Run reads datagrams until ctx is cancelled
func (r *OverlayReceiver) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { r.conn.Close() })
	defer stop()

	buf := make([]byte, 512)
	for {
		n, _, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		pkt, err := protocol.DecodeOverlayPacket(buf[:n])
		if err != nil {
			log.Debugf("UDP Receiver: Ignoring datagram: %v", err)
			continue
		}
		if r.OnPacket != nil {
			r.OnPacket(*pkt)
		}
	}
}

// Close releases the socket
func (r *OverlayReceiver) Close() error {
	return r.conn.Close()
}

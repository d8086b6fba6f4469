// Package network carries pedalkeys status to other processes: cadence
// datagrams for the overlay window and the WebSocket status feed.
package network

import (
	"fmt"
	"net"
	"sync"

	"pedalkeys/internal/overlay"
	"pedalkeys/internal/protocol"

	log "github.com/sirupsen/logrus"
)

// OverlaySender sends {"cadence","source"} datagrams to the overlay window.
// It is an overlay.Sink.
type OverlaySender struct {
	host string
	port int

	mu   sync.Mutex
	conn *net.UDPConn
}

// NewOverlaySender creates a sender for host:port. An empty host means
// localhost; port 0 means protocol.DefaultOverlayPort.
func NewOverlaySender(host string, port int) *OverlaySender {
	if host == "" {
		host = "127.0.0.1"
	}
	if port == 0 {
		port = protocol.DefaultOverlayPort
	}
	return &OverlaySender{host: host, port: port}
}

// Start resolves the target and opens the socket
func (s *OverlaySender) Start() error {
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(s.host, fmt.Sprint(s.port)))
	if err != nil {
		return fmt.Errorf("overlay address: %w", err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return fmt.Errorf("overlay socket: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	log.Infof("UDP Sender: Sending overlay datagrams to %s", addr)
	return nil
}

func (s *OverlaySender) Name() string { return "udp" }

// Publish sends one datagram. Nobody listening is not an error for UDP, but
// some platforms surface ICMP port-unreachable on the next write.
func (s *OverlaySender) Publish(st overlay.Status) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("udp sender not started")
	}

	data, err := protocol.EncodeOverlayPacket(&protocol.OverlayPacket{
		Cadence: st.Cadence,
		Source:  st.Source,
	})
	if err != nil {
		return err
	}
	_, err = conn.Write(data)
	return err
}

// Stop closes the socket
func (s *OverlaySender) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}

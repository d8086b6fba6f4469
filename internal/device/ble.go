package device

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"pedalkeys/internal/errs"

	log "github.com/sirupsen/logrus"
	"tinygo.org/x/bluetooth"
)

// connectScanTimeout bounds the scan that resolves an address before connecting
const connectScanTimeout = 10 * time.Second

// notificationBuffer is how many payloads may queue per subscription before
// new ones are dropped
const notificationBuffer = 32

// BLE is the Transport backed by the host Bluetooth adapter
type BLE struct {
	adapter *bluetooth.Adapter

	// the adapter runs one scan at a time
	scanMu sync.Mutex

	mu    sync.Mutex
	conns map[string]*bleConn
}

// NewBLE enables the default adapter
func NewBLE() (*BLE, error) {
	b := &BLE{
		adapter: bluetooth.DefaultAdapter,
		conns:   make(map[string]*bleConn),
	}

	if err := b.adapter.Enable(); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrAdapterUnavailable, err)
	}
	b.adapter.SetConnectHandler(b.onConnectChange)

	log.Info("BLE: Adapter enabled")
	return b, nil
}

func (b *BLE) onConnectChange(device bluetooth.Device, connected bool) {
	if connected {
		return
	}

	addr := normalizeAddress(device.Address.String())
	b.mu.Lock()
	c := b.conns[addr]
	delete(b.conns, addr)
	b.mu.Unlock()

	if c != nil {
		log.WithField("address", addr).Debug("BLE: Link dropped")
		c.markDone()
	}
}

// Scan listens for advertisements until timeout or ctx ends
func (b *BLE) Scan(ctx context.Context, timeout time.Duration) ([]Advertisement, error) {
	var mu sync.Mutex
	seen := make(map[string]Advertisement)

	err := b.scan(ctx, timeout, func(r bluetooth.ScanResult) bool {
		adv := Advertisement{
			Name:    r.LocalName(),
			Address: r.Address.String(),
			RSSI:    int(r.RSSI),
		}
		mu.Lock()
		if prev, ok := seen[adv.Address]; !ok || adv.Name != "" || prev.Name == "" {
			seen[adv.Address] = adv
		}
		mu.Unlock()
		return false
	})
	if err != nil {
		return nil, err
	}

	out := make([]Advertisement, 0, len(seen))
	for _, adv := range seen {
		out = append(out, adv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out, nil
}

// scan runs the adapter scan until fn returns true, timeout, or ctx ends
func (b *BLE) scan(ctx context.Context, timeout time.Duration, fn func(bluetooth.ScanResult) bool) error {
	b.scanMu.Lock()
	defer b.scanMu.Unlock()

	stop := func() { b.adapter.StopScan() }
	timer := time.AfterFunc(timeout, stop)
	defer timer.Stop()
	unwatch := context.AfterFunc(ctx, stop)
	defer unwatch()

	err := b.adapter.Scan(func(a *bluetooth.Adapter, r bluetooth.ScanResult) {
		if fn(r) {
			a.StopScan()
		}
	})
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	return ctx.Err()
}

// Connect resolves address with a short scan, then opens a link
func (b *BLE) Connect(ctx context.Context, address string) (Conn, error) {
	want := normalizeAddress(address)

	var found *bluetooth.Address
	err := b.scan(ctx, connectScanTimeout, func(r bluetooth.ScanResult) bool {
		if normalizeAddress(r.Address.String()) == want {
			a := r.Address
			found = &a
			return true
		}
		return false
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("device %s not advertising", address)
	}

	dev, err := b.adapter.Connect(*found, bluetooth.ConnectionParams{})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", address, err)
	}

	c := &bleConn{
		address: want,
		device:  dev,
		done:    make(chan struct{}),
		owner:   b,
	}
	b.mu.Lock()
	b.conns[want] = c
	b.mu.Unlock()
	return c, nil
}

func normalizeAddress(a string) string {
	return strings.ToUpper(strings.TrimSpace(a))
}

type bleConn struct {
	address string
	device  bluetooth.Device
	owner   *BLE

	done     chan struct{}
	doneOnce sync.Once
}

func (c *bleConn) markDone() {
	c.doneOnce.Do(func() { close(c.done) })
}

func (c *bleConn) Done() <-chan struct{} { return c.done }

func (c *bleConn) characteristic(service, characteristic string) (bluetooth.DeviceCharacteristic, error) {
	svcUUID, err := bluetooth.ParseUUID(service)
	if err != nil {
		return bluetooth.DeviceCharacteristic{}, fmt.Errorf("service uuid %q: %w", service, err)
	}
	charUUID, err := bluetooth.ParseUUID(characteristic)
	if err != nil {
		return bluetooth.DeviceCharacteristic{}, fmt.Errorf("characteristic uuid %q: %w", characteristic, err)
	}

	srvs, err := c.device.DiscoverServices([]bluetooth.UUID{svcUUID})
	if err != nil {
		return bluetooth.DeviceCharacteristic{}, fmt.Errorf("discover services: %w", err)
	}
	if len(srvs) == 0 {
		return bluetooth.DeviceCharacteristic{}, fmt.Errorf("service %s not found", service)
	}

	chars, err := srvs[0].DiscoverCharacteristics([]bluetooth.UUID{charUUID})
	if err != nil {
		return bluetooth.DeviceCharacteristic{}, fmt.Errorf("discover characteristics: %w", err)
	}
	if len(chars) == 0 {
		return bluetooth.DeviceCharacteristic{}, fmt.Errorf("characteristic %s not found", characteristic)
	}
	return chars[0], nil
}

func (c *bleConn) Subscribe(service, characteristic string) (<-chan []byte, error) {
	char, err := c.characteristic(service, characteristic)
	if err != nil {
		return nil, err
	}

	ch := make(chan []byte, notificationBuffer)
	err = char.EnableNotifications(func(buf []byte) {
		// the stack reuses buf after the callback returns
		data := append([]byte(nil), buf...)
		select {
		case ch <- data:
		default:
			log.WithField("address", c.address).Debug("BLE: Notification queue full, dropping payload")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("enable notifications: %w", err)
	}
	return ch, nil
}

func (c *bleConn) Write(service, characteristic string, data []byte) error {
	char, err := c.characteristic(service, characteristic)
	if err != nil {
		return err
	}
	if _, err := char.WriteWithoutResponse(data); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

func (c *bleConn) Disconnect() error {
	c.owner.mu.Lock()
	if c.owner.conns[c.address] == c {
		delete(c.owner.conns, c.address)
	}
	c.owner.mu.Unlock()

	defer c.markDone()
	return c.device.Disconnect()
}

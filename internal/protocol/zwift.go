package protocol

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Zwift Play controller GATT layout
const (
	ZwiftServiceUUID    = "00000001-19ca-4651-86e5-fa29dcdd09d1"
	ZwiftAsyncCharUUID  = "00000002-19ca-4651-86e5-fa29dcdd09d1" // notify
	ZwiftSyncRxCharUUID = "00000003-19ca-4651-86e5-fa29dcdd09d1" // write without response
	ZwiftSyncTxCharUUID = "00000004-19ca-4651-86e5-fa29dcdd09d1" // indicate
)

// Zwift Play message types (first byte of an async notification)
const (
	ZwiftMessageKeypad  uint8 = 0x07
	ZwiftMessageBattery uint8 = 0x19
)

// ZwiftHandshake must be written to the sync RX characteristic before the
// controller starts sending keypad notifications.
var ZwiftHandshake = []byte("RideOn")

// PaddleThreshold is the absolute analog value at which a paddle counts as pressed
const PaddleThreshold = 100

// keypad status field numbers, all varints
const (
	fieldRightPad protowire.Number = 1
	fieldY        protowire.Number = 2
	fieldZ        protowire.Number = 3
	fieldA        protowire.Number = 4
	fieldB        protowire.Number = 5
	fieldShift    protowire.Number = 6
	fieldOn       protowire.Number = 7
	fieldAnalogLR protowire.Number = 8
)

// button status values
const (
	buttonOn  = 0
	buttonOff = 1
)

var (
	// ErrUnknownMessage is returned for message types pedalkeys does not decode
	ErrUnknownMessage = errors.New("unknown message type")

	// ErrMalformedKeypad is returned when a keypad status payload does not parse
	ErrMalformedKeypad = errors.New("malformed keypad status")
)

// KeypadStatus is one decoded keypad notification. Buttons are true when held.
// A field the controller omits counts as released.
type KeypadStatus struct {
	RightPad bool
	Y        bool
	Z        bool
	A        bool
	B        bool
	Shift    bool
	Power    bool
	Analog   int
}

// Paddle reports whether the analog paddle is pushed past PaddleThreshold
func (k KeypadStatus) Paddle() bool {
	return k.Analog >= PaddleThreshold || k.Analog <= -PaddleThreshold
}

// ZwiftMessage is a decoded async notification: exactly one of Keypad or
// Battery is set.
type ZwiftMessage struct {
	Type    uint8
	Keypad  *KeypadStatus
	Battery int // percent, valid when Type == ZwiftMessageBattery
}

// DecodeZwiftMessage parses a notification from the async characteristic
func DecodeZwiftMessage(data []byte) (*ZwiftMessage, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("zwift message: %w", ErrShortPayload)
	}

	msg := &ZwiftMessage{Type: data[0]}
	payload := data[1:]

	switch msg.Type {
	case ZwiftMessageKeypad:
		status, err := DecodeKeypadStatus(payload)
		if err != nil {
			return nil, err
		}
		msg.Keypad = status
	case ZwiftMessageBattery:
		if len(payload) < 2 {
			return nil, fmt.Errorf("zwift battery: %w", ErrShortPayload)
		}
		msg.Battery = int(payload[1])
	default:
		return nil, fmt.Errorf("zwift message 0x%02X: %w", msg.Type, ErrUnknownMessage)
	}

	return msg, nil
}

// DecodeKeypadStatus parses the protobuf body of a keypad notification
func DecodeKeypadStatus(b []byte) (*KeypadStatus, error) {
	fields := make(map[protowire.Number]uint64)

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrMalformedKeypad, protowire.ParseError(n))
		}
		b = b[n:]
		if typ != protowire.VarintType {
			return nil, fmt.Errorf("%w: field %d has wire type %d", ErrMalformedKeypad, num, typ)
		}

		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrMalformedKeypad, protowire.ParseError(n))
		}
		b = b[n:]
		fields[num] = v
	}

	held := func(num protowire.Number) bool {
		v, ok := fields[num]
		return ok && v == buttonOn
	}

	status := &KeypadStatus{
		RightPad: held(fieldRightPad),
		Y:        held(fieldY),
		Z:        held(fieldZ),
		A:        held(fieldA),
		B:        held(fieldB),
		Shift:    held(fieldShift),
		Power:    held(fieldOn),
	}
	if v, ok := fields[fieldAnalogLR]; ok {
		status.Analog = int(int32(protowire.DecodeZigZag(v)))
	}

	return status, nil
}

// EncodeKeypadStatus is the inverse of DecodeZwiftMessage for keypad
// notifications, message type byte included.
func EncodeKeypadStatus(k KeypadStatus) []byte {
	status := func(held bool) uint64 {
		if held {
			return buttonOn
		}
		return buttonOff
	}

	b := []byte{ZwiftMessageKeypad}
	for _, f := range []struct {
		num  protowire.Number
		held bool
	}{
		{fieldRightPad, k.RightPad},
		{fieldY, k.Y},
		{fieldZ, k.Z},
		{fieldA, k.A},
		{fieldB, k.B},
		{fieldShift, k.Shift},
		{fieldOn, k.Power},
	} {
		b = protowire.AppendTag(b, f.num, protowire.VarintType)
		b = protowire.AppendVarint(b, status(f.held))
	}
	b = protowire.AppendTag(b, fieldAnalogLR, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(k.Analog)))
	return b
}

package protocol

import (
	"errors"
	"math"
	"testing"
)

func TestDecodeCSCMeasurementCrankOnly(t *testing.T) {
	m, err := DecodeCSCMeasurement([]byte{0x02, 0x10, 0x00, 0x00, 0x04})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if m.Wheel != nil {
		t.Error("Expected no wheel data")
	}
	if m.Crank == nil {
		t.Fatal("Expected crank data")
	}
	if m.Crank.Revolutions != 16 {
		t.Errorf("Expected 16 crank revolutions, got %d", m.Crank.Revolutions)
	}
	if m.Crank.EventTime != 1024 {
		t.Errorf("Expected crank event time 1024, got %d", m.Crank.EventTime)
	}
}

func TestDecodeCSCMeasurementWheelAndCrank(t *testing.T) {
	data := []byte{0x03, 0x64, 0x00, 0x00, 0x00, 0x00, 0x02, 0x05, 0x00, 0x00, 0x08}
	m, err := DecodeCSCMeasurement(data)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if m.Wheel == nil || m.Wheel.Revolutions != 100 || m.Wheel.EventTime != 512 {
		t.Errorf("Expected wheel {100 512}, got %+v", m.Wheel)
	}
	if m.Crank == nil || m.Crank.Revolutions != 5 || m.Crank.EventTime != 2048 {
		t.Errorf("Expected crank {5 2048}, got %+v", m.Crank)
	}
}

func TestDecodeCSCMeasurementShort(t *testing.T) {
	_, err := DecodeCSCMeasurement([]byte{0x02, 0x10})
	if !errors.Is(err, ErrShortPayload) {
		t.Errorf("Expected ErrShortPayload, got %v", err)
	}

	_, err = DecodeCSCMeasurement(nil)
	if !errors.Is(err, ErrShortPayload) {
		t.Errorf("Expected ErrShortPayload for empty payload, got %v", err)
	}
}

func TestDecodeIndoorBikeData(t *testing.T) {
	// speed 25.00 km/h, cadence 90 rpm, power 200 W, heart rate 140
	data := []byte{0x44, 0x02, 0xC4, 0x09, 0xB4, 0x00, 0xC8, 0x00, 0x8C}
	d, err := DecodeIndoorBikeData(data)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !d.HasSpeed || d.SpeedKPH != 25 {
		t.Errorf("Expected speed 25 km/h, got %v (present=%v)", d.SpeedKPH, d.HasSpeed)
	}
	if !d.HasCadence || d.CadenceRPM != 90 {
		t.Errorf("Expected cadence 90, got %v (present=%v)", d.CadenceRPM, d.HasCadence)
	}
	if !d.HasPower || d.PowerWatts != 200 {
		t.Errorf("Expected power 200, got %d (present=%v)", d.PowerWatts, d.HasPower)
	}
	if !d.HasHeartRate || d.HeartRate != 140 {
		t.Errorf("Expected heart rate 140, got %d (present=%v)", d.HeartRate, d.HasHeartRate)
	}
}

func TestDecodeIndoorBikeDataMoreDataFlag(t *testing.T) {
	d, err := DecodeIndoorBikeData([]byte{0x01, 0x00})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if d.HasSpeed || d.HasCadence || d.HasPower {
		t.Errorf("Expected no fields, got %+v", d)
	}

	d, err = DecodeIndoorBikeData([]byte{0x41, 0x00, 0xF6, 0xFF})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if d.PowerWatts != -10 {
		t.Errorf("Expected signed power -10, got %d", d.PowerWatts)
	}
}

func TestDecodeIndoorBikeDataSkipsFields(t *testing.T) {
	// average speed, cadence, distance (3 bytes), then power
	data := []byte{0x56, 0x00, 0x00, 0x00, 0x11, 0x11, 0x50, 0x00, 0x01, 0x02, 0x03, 0x64, 0x00}
	d, err := DecodeIndoorBikeData(data)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if d.CadenceRPM != 40 {
		t.Errorf("Expected cadence 40, got %v", d.CadenceRPM)
	}
	if d.PowerWatts != 100 {
		t.Errorf("Expected power 100, got %d", d.PowerWatts)
	}
}

func TestDecodeIndoorBikeDataShort(t *testing.T) {
	_, err := DecodeIndoorBikeData([]byte{0x44, 0x00, 0xC4, 0x09, 0xB4})
	if !errors.Is(err, ErrShortPayload) {
		t.Errorf("Expected ErrShortPayload, got %v", err)
	}
}

func TestDecodeCyclingPowerMeasurement(t *testing.T) {
	m, err := DecodeCyclingPowerMeasurement([]byte{0x21, 0x00, 0xFA, 0x00, 0x32, 0x0A, 0x00, 0x00, 0x04})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if m.PowerWatts != 250 {
		t.Errorf("Expected power 250, got %d", m.PowerWatts)
	}
	if m.Crank == nil || m.Crank.Revolutions != 10 || m.Crank.EventTime != 1024 {
		t.Errorf("Expected crank {10 1024}, got %+v", m.Crank)
	}

	m, err = DecodeCyclingPowerMeasurement([]byte{0x00, 0x00, 0x05, 0x00})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if m.Crank != nil {
		t.Error("Expected no crank data")
	}
}

func TestDecodeZwiftKeypad(t *testing.T) {
	// right pad, Y held, Z released, analog -100
	data := []byte{0x07, 0x08, 0x00, 0x10, 0x00, 0x18, 0x01, 0x40, 0xC7, 0x01}
	msg, err := DecodeZwiftMessage(data)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if msg.Keypad == nil {
		t.Fatal("Expected keypad status")
	}
	k := msg.Keypad
	if !k.RightPad {
		t.Error("Expected right pad")
	}
	if !k.Y {
		t.Error("Expected Y held")
	}
	if k.Z || k.A || k.B || k.Shift || k.Power {
		t.Errorf("Expected only Y held, got %+v", k)
	}
	if k.Analog != -100 {
		t.Errorf("Expected analog -100, got %d", k.Analog)
	}
	if !k.Paddle() {
		t.Error("Expected paddle pressed at -100")
	}
}

func TestDecodeZwiftKeypadDefaultsToLeft(t *testing.T) {
	msg, err := DecodeZwiftMessage([]byte{0x07, 0x20, 0x00, 0x40, 0x62})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if msg.Keypad.RightPad {
		t.Error("Expected left pad when field 1 is absent")
	}
	if !msg.Keypad.A {
		t.Error("Expected A held")
	}
	if msg.Keypad.Analog != 49 || msg.Keypad.Paddle() {
		t.Errorf("Expected analog 49 without paddle, got %d", msg.Keypad.Analog)
	}
}

func TestEncodeKeypadStatus(t *testing.T) {
	want := KeypadStatus{RightPad: true, B: true, Shift: true, Analog: 120}
	msg, err := DecodeZwiftMessage(EncodeKeypadStatus(want))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if *msg.Keypad != want {
		t.Errorf("Expected %+v, got %+v", want, *msg.Keypad)
	}
}

func TestDecodeZwiftBattery(t *testing.T) {
	msg, err := DecodeZwiftMessage([]byte{0x19, 0x08, 0x55})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if msg.Battery != 85 {
		t.Errorf("Expected battery 85, got %d", msg.Battery)
	}
}

func TestDecodeZwiftErrors(t *testing.T) {
	if _, err := DecodeZwiftMessage([]byte{0x42, 0x00}); !errors.Is(err, ErrUnknownMessage) {
		t.Errorf("Expected ErrUnknownMessage, got %v", err)
	}
	if _, err := DecodeZwiftMessage([]byte{0x07, 0x0A, 0x00}); !errors.Is(err, ErrMalformedKeypad) {
		t.Errorf("Expected ErrMalformedKeypad for wrong wire type, got %v", err)
	}
	if _, err := DecodeZwiftMessage([]byte{0x07, 0x40, 0xC7}); !errors.Is(err, ErrMalformedKeypad) {
		t.Errorf("Expected ErrMalformedKeypad for truncated varint, got %v", err)
	}
	if _, err := DecodeZwiftMessage(nil); !errors.Is(err, ErrShortPayload) {
		t.Errorf("Expected ErrShortPayload, got %v", err)
	}
}

func TestOverlayPacket(t *testing.T) {
	pkt, err := DecodeOverlayPacket([]byte(`{"cadence":87.5,"source":"Trainer"}`))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if pkt.Cadence != 87.5 || pkt.Source != "Trainer" {
		t.Errorf("Expected {87.5 Trainer}, got %+v", pkt)
	}

	if _, err := DecodeOverlayPacket([]byte(`{"source":"Trainer"}`)); err == nil {
		t.Error("Expected error for packet without cadence")
	}

	if _, err := EncodeOverlayPacket(&OverlayPacket{Cadence: math.NaN()}); err == nil {
		t.Error("Expected error encoding NaN cadence")
	}

	data, err := EncodeOverlayPacket(&OverlayPacket{Cadence: 0, Source: "External"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if string(data) != `{"cadence":0,"source":"External"}` {
		t.Errorf("Unexpected wire format: %s", data)
	}
}

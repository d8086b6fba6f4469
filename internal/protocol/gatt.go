package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// GATT UUIDs used by pedalkeys, in the 128-bit string form accepted by the
// Bluetooth stack.
const (
	ServiceUUIDCyclingSpeedCadence = "00001816-0000-1000-8000-00805f9b34fb"
	CharUUIDCSCMeasurement         = "00002a5b-0000-1000-8000-00805f9b34fb"

	ServiceUUIDCyclingPower         = "00001818-0000-1000-8000-00805f9b34fb"
	CharUUIDCyclingPowerMeasurement = "00002a63-0000-1000-8000-00805f9b34fb"

	ServiceUUIDFTMS        = "00001826-0000-1000-8000-00805f9b34fb"
	CharUUIDIndoorBikeData = "00002ad2-0000-1000-8000-00805f9b34fb"
)

// CrankEventTicksPerSecond is the resolution of crank and wheel event times
const CrankEventTicksPerSecond = 1024

// ErrShortPayload is returned when a notification is shorter than its flags announce
var ErrShortPayload = errors.New("payload too short")

// CrankData is the cumulative crank revolution counter and the time of the
// last crank event, both wrapping at 16 bits.
type CrankData struct {
	Revolutions uint16
	EventTime   uint16 // 1/1024 s
}

// WheelData is the cumulative wheel revolution counter
type WheelData struct {
	Revolutions uint32
	EventTime   uint16 // 1/1024 s (CSC) or 1/2048 s (CPS)
}

// CSCMeasurement is a decoded Cycling Speed and Cadence Measurement (0x2A5B)
type CSCMeasurement struct {
	Wheel *WheelData
	Crank *CrankData
}

// DecodeCSCMeasurement parses a CSC Measurement notification.
//
// Wire format (little endian):
//
//	flags(u8) [wheelRevs(u32) wheelTime(u16)] [crankRevs(u16) crankTime(u16)]
func DecodeCSCMeasurement(data []byte) (*CSCMeasurement, error) {
	r := reader{buf: data}
	flags := r.u8()
	m := &CSCMeasurement{}

	if flags&0x01 != 0 {
		m.Wheel = &WheelData{Revolutions: r.u32(), EventTime: r.u16()}
	}
	if flags&0x02 != 0 {
		m.Crank = &CrankData{Revolutions: r.u16(), EventTime: r.u16()}
	}

	if r.err != nil {
		return nil, fmt.Errorf("csc measurement: %w", r.err)
	}
	return m, nil
}

// IndoorBikeData is a decoded FTMS Indoor Bike Data notification (0x2AD2).
// Only the fields pedalkeys reads are kept; the rest are skipped by size.
type IndoorBikeData struct {
	HasSpeed     bool
	SpeedKPH     float64
	HasCadence   bool
	CadenceRPM   float64
	HasPower     bool
	PowerWatts   int
	HasHeartRate bool
	HeartRate    int
}

// DecodeIndoorBikeData parses an FTMS Indoor Bike Data notification.
// Bit 0 of the flags is inverted: instantaneous speed is present when it is clear.
func DecodeIndoorBikeData(data []byte) (*IndoorBikeData, error) {
	r := reader{buf: data}
	flags := r.u16()
	d := &IndoorBikeData{}

	if flags&(1<<0) == 0 {
		d.HasSpeed = true
		d.SpeedKPH = float64(r.u16()) / 100
	}
	if flags&(1<<1) != 0 {
		r.skip(2) // average speed
	}
	if flags&(1<<2) != 0 {
		d.HasCadence = true
		d.CadenceRPM = float64(r.u16()) / 2
	}
	if flags&(1<<3) != 0 {
		r.skip(2) // average cadence
	}
	if flags&(1<<4) != 0 {
		r.skip(3) // total distance
	}
	if flags&(1<<5) != 0 {
		r.skip(2) // resistance level
	}
	if flags&(1<<6) != 0 {
		d.HasPower = true
		d.PowerWatts = int(int16(r.u16()))
	}
	if flags&(1<<7) != 0 {
		r.skip(2) // average power
	}
	if flags&(1<<8) != 0 {
		r.skip(5) // total, per hour, per minute energy
	}
	if flags&(1<<9) != 0 {
		d.HasHeartRate = true
		d.HeartRate = int(r.u8())
	}

	if r.err != nil {
		return nil, fmt.Errorf("indoor bike data: %w", r.err)
	}
	return d, nil
}

// CyclingPowerMeasurement is a decoded Cycling Power Measurement (0x2A63)
type CyclingPowerMeasurement struct {
	PowerWatts int
	Crank      *CrankData
}

// DecodeCyclingPowerMeasurement parses a Cycling Power Measurement notification.
//
//	flags(u16) power(s16) [balance(u8)] [torque(u16)] [wheel(u32,u16)] [crank(u16,u16)] ...
func DecodeCyclingPowerMeasurement(data []byte) (*CyclingPowerMeasurement, error) {
	r := reader{buf: data}
	flags := r.u16()
	m := &CyclingPowerMeasurement{PowerWatts: int(int16(r.u16()))}

	if flags&(1<<0) != 0 {
		r.skip(1) // pedal power balance
	}
	if flags&(1<<2) != 0 {
		r.skip(2) // accumulated torque
	}
	if flags&(1<<4) != 0 {
		r.skip(6) // wheel revolution data
	}
	if flags&(1<<5) != 0 {
		m.Crank = &CrankData{Revolutions: r.u16(), EventTime: r.u16()}
	}

	if r.err != nil {
		return nil, fmt.Errorf("cycling power measurement: %w", r.err)
	}
	return m, nil
}

// reader is a little-endian cursor that records the first overrun
type reader struct {
	buf []byte
	off int
	err error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.buf) {
		r.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrShortPayload, n, r.off, len(r.buf))
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) skip(n int) { r.take(n) }

func (r *reader) u8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *reader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

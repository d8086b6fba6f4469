package device

import (
	"fmt"
	"time"

	"pedalkeys/internal/cadence"
	"pedalkeys/internal/controller"
	"pedalkeys/internal/protocol"

	log "github.com/sirupsen/logrus"
)

// Decoder turns one notification payload into events. The supervisor fills
// in Device, Kind and At. A Decoder lives for one connection.
type Decoder interface {
	Decode(data []byte, at time.Time) ([]Event, error)
}

// Handshake is written after subscribing, with an optional characteristic
// to subscribe to first (Zwift Play answers the handshake by indication).
type Handshake struct {
	Service        string
	Characteristic string
	Data           []byte
	Indicate       string
}

// Stream describes one device subscription
type Stream struct {
	ID             string
	Kind           Kind
	Address        string
	Service        string
	Characteristic string
	Handshake      *Handshake
	NewDecoder     func() Decoder
}

// TrainerStream reads cadence and power from a smart trainer. profile is
// "ftms" (Indoor Bike Data) or "cps" (Cycling Power Measurement).
func TrainerStream(address, profile string, zeroWatts int) Stream {
	s := Stream{
		ID:      "trainer",
		Kind:    KindTrainer,
		Address: address,
	}
	if profile == "cps" {
		s.Service = protocol.ServiceUUIDCyclingPower
		s.Characteristic = protocol.CharUUIDCyclingPowerMeasurement
		s.NewDecoder = func() Decoder { return &cpsDecoder{zeroWatts: zeroWatts} }
	} else {
		s.Service = protocol.ServiceUUIDFTMS
		s.Characteristic = protocol.CharUUIDIndoorBikeData
		s.NewDecoder = func() Decoder { return &ftmsDecoder{zeroWatts: zeroWatts} }
	}
	return s
}

// ExternalCadenceStream reads crank data from a CSC sensor
func ExternalCadenceStream(address string) Stream {
	return Stream{
		ID:             "external",
		Kind:           KindExternal,
		Address:        address,
		Service:        protocol.ServiceUUIDCyclingSpeedCadence,
		Characteristic: protocol.CharUUIDCSCMeasurement,
		NewDecoder:     func() Decoder { return &cscDecoder{} },
	}
}

// ControllerStream reads keypad notifications from one Zwift Play half
func ControllerStream(adv Advertisement) Stream {
	id := "controller:" + adv.Address
	return Stream{
		ID:             id,
		Kind:           KindController,
		Address:        adv.Address,
		Service:        protocol.ZwiftServiceUUID,
		Characteristic: protocol.ZwiftAsyncCharUUID,
		Handshake: &Handshake{
			Service:        protocol.ZwiftServiceUUID,
			Characteristic: protocol.ZwiftSyncRxCharUUID,
			Data:           protocol.ZwiftHandshake,
			Indicate:       protocol.ZwiftSyncTxCharUUID,
		},
		NewDecoder: func() Decoder { return &zwiftDecoder{id: id, name: adv.Name} },
	}
}

type ftmsDecoder struct {
	zeroWatts int
}

func (d *ftmsDecoder) Decode(data []byte, at time.Time) ([]Event, error) {
	m, err := protocol.DecodeIndoorBikeData(data)
	if err != nil {
		return nil, err
	}

	var events []Event
	if m.HasPower {
		events = append(events, Event{Power: &PowerSample{Watts: m.PowerWatts, At: at}})
	}
	if m.HasCadence {
		rpm := m.CadenceRPM
		if m.HasPower {
			rpm = cadence.TrainerRPM(rpm, m.PowerWatts, d.zeroWatts)
		}
		events = append(events, Event{Cadence: &cadence.Sample{RPM: rpm, Source: cadence.SourceTrainer, At: at}})
	}
	return events, nil
}

type cpsDecoder struct {
	zeroWatts int
	crank     cadence.CrankCalculator
	rpm       float64
	seenCrank bool
}

// Decode reports the last computed RPM on every notification, so the power
// rule can zero it once the rider stops.
func (d *cpsDecoder) Decode(data []byte, at time.Time) ([]Event, error) {
	m, err := protocol.DecodeCyclingPowerMeasurement(data)
	if err != nil {
		return nil, err
	}

	events := []Event{{Power: &PowerSample{Watts: m.PowerWatts, At: at}}}
	if m.Crank != nil {
		d.rpm, _ = d.crank.Update(*m.Crank)
		d.seenCrank = true
	}
	if d.seenCrank {
		rpm := cadence.TrainerRPM(d.rpm, m.PowerWatts, d.zeroWatts)
		events = append(events, Event{Cadence: &cadence.Sample{RPM: rpm, Source: cadence.SourceTrainer, At: at}})
	}
	return events, nil
}

type cscDecoder struct {
	crank cadence.CrankCalculator
}

func (d *cscDecoder) Decode(data []byte, at time.Time) ([]Event, error) {
	m, err := protocol.DecodeCSCMeasurement(data)
	if err != nil {
		return nil, err
	}
	if m.Crank == nil {
		return nil, nil
	}

	rpm, advanced := d.crank.Update(*m.Crank)
	if !advanced {
		return nil, nil
	}
	return []Event{{Cadence: &cadence.Sample{RPM: rpm, Source: cadence.SourceExternal, At: at}}}, nil
}

type zwiftDecoder struct {
	id   string
	name string
}

func (d *zwiftDecoder) Decode(data []byte, at time.Time) ([]Event, error) {
	msg, err := protocol.DecodeZwiftMessage(data)
	if err != nil {
		return nil, err
	}

	switch msg.Type {
	case protocol.ZwiftMessageKeypad:
		snap := controller.FromKeypad(d.id, *msg.Keypad, at)
		return []Event{{Controller: &snap}}, nil
	case protocol.ZwiftMessageBattery:
		log.WithField("device", d.id).Infof("Controller: %s battery %d%%", d.name, msg.Battery)
	}
	return nil, nil
}

// String names the stream and its address for log lines
func (s Stream) String() string {
	return fmt.Sprintf("%s (%s)", s.ID, s.Address)
}

package protocol

import (
	"encoding/json"
	"errors"
	"math"
)

// DefaultOverlayPort is where the cadence overlay window listens
const DefaultOverlayPort = 49555

// OverlayPacket is the datagram sent to the cadence overlay window.
//
// Wire format is a single JSON object per datagram:
//
//	{"cadence": 87.5, "source": "Trainer"}
type OverlayPacket struct {
	Cadence float64 `json:"cadence"`
	Source  string  `json:"source"`
}

// EncodeOverlayPacket serializes an OverlayPacket to wire format.
func EncodeOverlayPacket(pkt *OverlayPacket) ([]byte, error) {
	if math.IsNaN(pkt.Cadence) || math.IsInf(pkt.Cadence, 0) {
		return nil, errors.New("udp: cadence is not finite")
	}
	return json.Marshal(pkt)
}

// DecodeOverlayPacket deserializes wire bytes into an OverlayPacket.
func DecodeOverlayPacket(data []byte) (*OverlayPacket, error) {
	var raw struct {
		Cadence *float64 `json:"cadence"`
		Source  *string  `json:"source"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw.Cadence == nil {
		return nil, errors.New("udp: packet has no cadence")
	}

	pkt := &OverlayPacket{Cadence: *raw.Cadence}
	if raw.Source != nil {
		pkt.Source = *raw.Source
	}
	return pkt, nil
}

// Package cadence computes pedaling cadence from sensor data and picks which
// source to trust on every tick.
package cadence

import "pedalkeys/internal/protocol"

// CrankCalculator derives RPM from consecutive cumulative crank readings
// (CSC or Cycling Power). Counters and event times wrap at 16 bits.
type CrankCalculator struct {
	prev *protocol.CrankData
	rpm  float64
}

// Update feeds one crank reading. advanced is true when the reading should
// count as fresh data: the first reading, or one where both the revolution
// count and the event time moved. Sensors keep repeating the last event while
// the cranks are stopped; those repeats return the previous RPM with advanced
// false.
func (c *CrankCalculator) Update(d protocol.CrankData) (rpm float64, advanced bool) {
	if c.prev == nil {
		c.prev = &d
		c.rpm = 0
		return 0, true
	}

	revs := d.Revolutions - c.prev.Revolutions
	ticks := d.EventTime - c.prev.EventTime
	c.prev = &d

	if revs == 0 || ticks == 0 {
		return c.rpm, false
	}

	seconds := float64(ticks) / protocol.CrankEventTicksPerSecond
	c.rpm = float64(revs) / seconds * 60
	return c.rpm, true
}


// TrainerRPM applies the trainer zero-cadence rule: some trainers keep
// reporting the last cadence after the rider stops, so at or below
// zeroWatts the cadence is forced to 0.
func TrainerRPM(rpm float64, watts int, zeroWatts int) float64 {
	if watts <= zeroWatts {
		return 0
	}
	return rpm
}

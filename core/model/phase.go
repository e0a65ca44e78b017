package model

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Phase identifies one of the three supply lines. The zero value means the
// consumer is not wired to any phase yet.
type Phase uint8

const (
	PhaseUnassigned Phase = iota
	PhaseA
	PhaseB
	PhaseC
)

// Phases lists the assignable phases in order.
var Phases = [3]Phase{PhaseA, PhaseB, PhaseC}

// Valid reports whether p is one of A, B or C.
func (p Phase) Valid() bool { return p >= PhaseA && p <= PhaseC }

// Index returns the zero-based slot of p in a [3]float64 power vector.
// Unassigned maps to slot 0.
func (p Phase) Index() int {
	if !p.Valid() {
		return 0
	}
	return int(p) - 1
}

// Rotate returns the label reached after r clockwise steps. An unassigned
// phase is treated as A.
func (p Phase) Rotate(r Rotation) Phase {
	return Phase((p.Index()+int(r)%3)%3 + 1)
}

func (p Phase) String() string {
	switch p {
	case PhaseA:
		return "A"
	case PhaseB:
		return "B"
	case PhaseC:
		return "C"
	case PhaseUnassigned:
		return "-"
	default:
		return fmt.Sprintf("Phase(%d)", uint8(p))
	}
}

// ParsePhase converts "A"/"B"/"C" (or "1"/"2"/"3") to a Phase. Empty input
// and "-" yield PhaseUnassigned.
func ParsePhase(s string) (Phase, error) {
	switch s {
	case "A", "a", "1":
		return PhaseA, nil
	case "B", "b", "2":
		return PhaseB, nil
	case "C", "c", "3":
		return PhaseC, nil
	case "", "-", "0":
		return PhaseUnassigned, nil
	}
	return PhaseUnassigned, fmt.Errorf("unknown phase %q", s)
}

// MarshalText renders the phase as "A", "B", "C" or "-".
func (p Phase) MarshalText() ([]byte, error) {
	if p > PhaseC {
		return nil, fmt.Errorf("phase %d out of range", uint8(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText accepts the forms understood by ParsePhase.
func (p *Phase) UnmarshalText(b []byte) error {
	v, err := ParsePhase(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Rotation is the cyclic relabelling applied to the readings of a
// three-phase consumer.
type Rotation uint8

const (
	RotationNone Rotation = iota
	RotationClockwise
	RotationCounterClockwise
)

// Valid reports whether r is 0, 1 or 2.
func (r Rotation) Valid() bool { return r <= RotationCounterClockwise }

func (r Rotation) String() string {
	switch r {
	case RotationNone:
		return "none"
	case RotationClockwise:
		return "cw"
	case RotationCounterClockwise:
		return "ccw"
	default:
		return fmt.Sprintf("Rotation(%d)", uint8(r))
	}
}

// MarshalText renders the rotation as "none", "cw" or "ccw".
func (r Rotation) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("rotation %d out of range", uint8(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText accepts "none", "cw" and "ccw" as well as "0", "1" and "2".
func (r *Rotation) UnmarshalText(b []byte) error {
	switch string(b) {
	case "none", "", "0":
		*r = RotationNone
	case "cw", "1":
		*r = RotationClockwise
	case "ccw", "2":
		*r = RotationCounterClockwise
	default:
		return fmt.Errorf("unknown rotation %q", string(b))
	}
	return nil
}

// Rotate redistributes per-phase readings. Clockwise moves A->B, B->C and
// C->A; counter-clockwise moves A->C, B->A and C->B.
func Rotate(readings [3]float64, r Rotation) [3]float64 {
	switch r % 3 {
	case RotationClockwise:
		return [3]float64{readings[2], readings[0], readings[1]}
	case RotationCounterClockwise:
		return [3]float64{readings[1], readings[2], readings[0]}
	default:
		return readings
	}
}

// UnbalanceRate is the spread between the most and least loaded phase
// relative to the most loaded one, in percent. It is 0 when no phase
// carries load.
func UnbalanceRate(powers [3]float64) float64 {
	hi := floats.Max(powers[:])
	if hi <= 0 {
		return 0
	}
	lo := floats.Min(powers[:])
	return (hi - lo) / hi * 100
}

// Unbalance status bands used for reporting.
const (
	StatusNormal   = "normal"
	StatusMild     = "mild"
	StatusModerate = "moderate"
	StatusSevere   = "severe"
)

// UnbalanceStatus classifies an unbalance rate.
func UnbalanceStatus(rate float64) string {
	switch {
	case rate <= 15:
		return StatusNormal
	case rate <= 30:
		return StatusMild
	case rate <= 50:
		return StatusModerate
	default:
		return StatusSevere
	}
}

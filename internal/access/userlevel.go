package access

import (
	"fmt"
	"strings"
)

// Userlevel is an ordered privilege rank. Higher values are more privileged.
type Userlevel int

// Userlevel ranks, lowest privilege first.
const (
	Readonly Userlevel = iota
	Normal
	Service
	Internal
)

var userlevelNames = [...]string{
	Readonly: "readonly",
	Normal:   "normal",
	Service:  "service",
	Internal: "internal",
}

// Levels returns every userlevel in ascending order.
func Levels() []Userlevel {
	return []Userlevel{Readonly, Normal, Service, Internal}
}

// String returns the lowercase level name.
func (l Userlevel) String() string {
	if l.IsValid() {
		return userlevelNames[l]
	}
	return fmt.Sprintf("userlevel(%d)", int(l))
}

// IsValid reports whether l is one of the defined ranks.
func (l Userlevel) IsValid() bool {
	return l >= Readonly && l <= Internal
}

// ParseUserlevel converts a level name (case-insensitive) or its numeric
// rank into a Userlevel.
func ParseUserlevel(s string) (Userlevel, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range userlevelNames {
		if n == name || fmt.Sprint(i) == name {
			return Userlevel(i), nil
		}
	}
	return Readonly, fmt.Errorf("%w: %q", ErrInvalidUserlevel, s)
}

// MarshalText implements encoding.TextMarshaler.
func (l Userlevel) MarshalText() ([]byte, error) {
	if !l.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidUserlevel, int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Userlevel) UnmarshalText(text []byte) error {
	parsed, err := ParseUserlevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Effective returns the level compared against parameter thresholds.
// Readonly is clamped up to Normal; every other level maps to itself.
func Effective(l Userlevel) Userlevel {
	if l == Readonly {
		return Normal
	}
	return l
}

// Permits reports whether a session at level current may perform an
// operation that requires level required.
func Permits(current, required Userlevel) bool {
	return Effective(current) >= required
}

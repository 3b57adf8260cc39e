package civiltime

import (
	"fmt"
	"time"
)

// Policy selects which civil zone interprets wall-clock input and how the
// resulting instant is serialized for the backend. The two booking flows use
// different policies; they are deliberately separate strategies rather than
// one parameterized function so neither flow's behavior can drift silently.
type Policy interface {
	// Name returns the zone identifier sent in wire payloads that carry one.
	Name() string
	// Location returns the zone used to interpret and display wall clocks.
	Location() *time.Location
	// FormatWire serializes an instant for the backend.
	FormatWire(t time.Time) string
}

// fixedZonePolicy pins the zone to a named IANA zone regardless of where the
// viewer is. Used by the call-scheduling flow. Instants go on the wire in UTC
// with a Z suffix.
type fixedZonePolicy struct {
	name string
	loc  *time.Location
}

// FixedZone returns the policy for a named IANA civil zone.
func FixedZone(name string) (Policy, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown civil zone %q: %w", name, err)
	}
	return &fixedZonePolicy{name: name, loc: loc}, nil
}

func (p *fixedZonePolicy) Name() string             { return p.name }
func (p *fixedZonePolicy) Location() *time.Location { return p.loc }

func (p *fixedZonePolicy) FormatWire(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// viewerLocalPolicy derives the zone from the process's runtime environment.
// Used by the legacy generic-booking flow, which puts a numeric ±HH:MM offset
// on the wire instead of a zone name.
type viewerLocalPolicy struct {
	loc *time.Location
}

// ViewerLocal returns the policy that follows the viewer's local zone.
func ViewerLocal() Policy {
	return &viewerLocalPolicy{loc: time.Local}
}

func (p *viewerLocalPolicy) Name() string             { return p.loc.String() }
func (p *viewerLocalPolicy) Location() *time.Location { return p.loc }

func (p *viewerLocalPolicy) FormatWire(t time.Time) string {
	return t.In(p.loc).Format("2006-01-02T15:04:05-07:00")
}

package civiltime

import (
	"testing"
	"time"
)

func TestFixedZonePolicy(t *testing.T) {
	p, err := FixedZone("Europe/London")
	if err != nil {
		t.Fatalf("FixedZone returned error: %v", err)
	}
	if p.Name() != "Europe/London" {
		t.Errorf("unexpected policy name: %q", p.Name())
	}

	// Wire format is always UTC with a Z suffix, regardless of the zone.
	instant := time.Date(2025, time.July, 1, 13, 30, 0, 0, time.UTC)
	if got := p.FormatWire(instant.In(p.Location())); got != "2025-07-01T13:30:00Z" {
		t.Errorf("unexpected wire format: %q", got)
	}
}

func TestFixedZoneUnknown(t *testing.T) {
	if _, err := FixedZone("Mars/Olympus_Mons"); err == nil {
		t.Error("expected error for unknown zone")
	}
}

func TestViewerLocalPolicyWireFormat(t *testing.T) {
	p := ViewerLocal()
	instant := time.Date(2025, time.July, 1, 13, 30, 0, 0, time.UTC)
	got := p.FormatWire(instant)

	// The numeric offset varies with the test environment's zone, but the
	// serialized instant must parse back to the same moment.
	parsed, err := time.Parse("2006-01-02T15:04:05-07:00", got)
	if err != nil {
		t.Fatalf("wire format %q did not parse: %v", got, err)
	}
	if !parsed.Equal(instant) {
		t.Errorf("wire format %q parsed to %v, expected %v", got, parsed, instant)
	}
}

package util

import (
	"testing"
	"time"
)

func TestParseBoolEnv(t *testing.T) {
	cases := []struct {
		value    string
		def      bool
		expected bool
	}{
		{"true", false, true},
		{"1", false, true},
		{"yes", false, true},
		{"ON", false, true},
		{"false", true, false},
		{"0", true, false},
		{"no", true, false},
		{"off", true, false},
		{"", true, true},
		{"", false, false},
		{"maybe", true, true},
		{"maybe", false, false},
	}
	for _, c := range cases {
		t.Setenv("CALLBOOK_TEST_BOOL", c.value)
		if got := ParseBoolEnv("CALLBOOK_TEST_BOOL", c.def); got != c.expected {
			t.Errorf("ParseBoolEnv(%q, %v) = %v, expected %v", c.value, c.def, got, c.expected)
		}
	}
}

func TestParseDurationEnv(t *testing.T) {
	cases := []struct {
		value    string
		def      time.Duration
		expected time.Duration
	}{
		{"45m", time.Hour, 45 * time.Minute},
		{"1h30m", time.Hour, 90 * time.Minute},
		{" 10s ", time.Hour, 10 * time.Second},
		{"", time.Hour, time.Hour},
		{"soon", time.Hour, time.Hour},
		{"45", time.Hour, time.Hour}, // bare numbers are not durations
	}
	for _, c := range cases {
		t.Setenv("CALLBOOK_TEST_DURATION", c.value)
		if got := ParseDurationEnv("CALLBOOK_TEST_DURATION", c.def); got != c.expected {
			t.Errorf("ParseDurationEnv(%q, %v) = %v, expected %v", c.value, c.def, got, c.expected)
		}
	}
}

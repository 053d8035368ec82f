package utils

import (
	"testing"
	"time"
)

func TestParseStartTimeAcceptsBothLayouts(t *testing.T) {
	got, err := ParseStartTime("2026-03-14T08:30:00")
	if err != nil {
		t.Fatalf("strict layout: %v", err)
	}
	want := time.Date(2026, 3, 14, 8, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("strict layout: got %v want %v", got, want)
	}

	got, err = ParseStartTime("2026-03-14 08:30")
	if err != nil {
		t.Fatalf("short layout: %v", err)
	}
	if !got.Equal(want) {
		t.Fatalf("short layout: got %v want %v", got, want)
	}
}

func TestParseStartTimeRejectsOtherFormats(t *testing.T) {
	for _, raw := range []string{
		"14/03/2026 08:30",
		"2026-03-14",
		"08:30",
		"not a time",
		"",
	} {
		if _, err := ParseStartTime(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestConvertToUTCDateTruncatesToUTCMidnight(t *testing.T) {
	loc := time.FixedZone("UTC+6:30", 6*3600+1800)

	// 01:15 local on the 15th is still 18:45 on the 14th in UTC.
	local := time.Date(2026, 3, 15, 1, 15, 0, 0, loc)
	got := ConvertToUTCDate(local)
	want := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}

	// Midday local is already on the 15th in UTC.
	local = time.Date(2026, 3, 15, 12, 0, 0, 0, loc)
	got = ConvertToUTCDate(local)
	want = time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

package domain

import (
	"testing"
	"time"
)

func TestClassifyArrival(t *testing.T) {
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		planned string
		actual  time.Time
		want    OnTimeStatus
	}{
		{"exact", "09:00", day.Add(9 * time.Hour), OnTimeOK},
		{"within tolerance late", "09:00", day.Add(9*time.Hour + 10*time.Minute), OnTimeOK},
		{"at tolerance boundary", "09:00", day.Add(9*time.Hour + 15*time.Minute), OnTimeOK},
		{"beyond tolerance late", "09:00", day.Add(9*time.Hour + 16*time.Minute), OnTimeLate},
		{"within tolerance early", "09:00", day.Add(8*time.Hour + 50*time.Minute), OnTimeOK},
		{"beyond tolerance early", "09:00", day.Add(8*time.Hour + 30*time.Minute), OnTimeEarly},
		{"rollover planned before midnight", "23:50", day.Add(24*time.Hour + 5*time.Minute), OnTimeOK},
		{"rollover planned after midnight", "00:10", day.Add(23*time.Hour + 55*time.Minute), OnTimeOK},
		{"rollover late", "23:30", day.Add(24*time.Hour + 10*time.Minute), OnTimeLate},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ClassifyArrival(tc.planned, tc.actual, DefaultOnTimeTolerance)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("ClassifyArrival(%q, %v) = %s, want %s", tc.planned, tc.actual, got, tc.want)
			}
		})
	}
}

func TestClassifyArrivalIdempotent(t *testing.T) {
	actual := time.Date(2026, 3, 1, 9, 10, 0, 0, time.UTC)

	first, err := ClassifyArrival("09:00", actual, DefaultOnTimeTolerance)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 5; i++ {
		got, err := ClassifyArrival("09:00", actual, DefaultOnTimeTolerance)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != first {
			t.Fatalf("classification changed between calls: %s then %s", first, got)
		}
	}
}

func TestClassifyArrivalRejectsMalformedPlanned(t *testing.T) {
	for _, planned := range []string{"", "9", "25:00", "09:61", "ab:cd"} {
		if _, err := ClassifyArrival(planned, time.Now(), DefaultOnTimeTolerance); err == nil {
			t.Errorf("ClassifyArrival(%q) succeeded, want error", planned)
		}
	}
}

func TestOnTimePerformance(t *testing.T) {
	ok := OnTimeOK
	early := OnTimeEarly
	late := OnTimeLate

	stops := []*StopProgress{
		{OnTimeStatus: &ok},
		{OnTimeStatus: &early},
		{OnTimeStatus: &late},
		{OnTimeStatus: nil}, // unclassified stops are excluded
	}

	got := OnTimePerformance(stops)
	if got == nil {
		t.Fatal("OnTimePerformance returned nil, want percentage")
	}
	if *got != 67 {
		t.Fatalf("OnTimePerformance = %d, want 67", *got)
	}
}

func TestOnTimePerformanceNoClassifications(t *testing.T) {
	stops := []*StopProgress{{}, {}}
	if got := OnTimePerformance(stops); got != nil {
		t.Fatalf("OnTimePerformance = %d, want nil", *got)
	}
}

package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

type OnTimeStatus string

const (
	OnTimeEarly OnTimeStatus = "early"
	OnTimeOK    OnTimeStatus = "on_time"
	OnTimeLate  OnTimeStatus = "late"
)

// DefaultOnTimeTolerance is the operationally observed window around a planned
// time within which an arrival still counts as on time.
const DefaultOnTimeTolerance = 15 * time.Minute

const minutesPerDay = 24 * 60

// ParseHHMM parses a planned time-of-day ("09:05") into minutes since midnight.
func ParseHHMM(s string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("parse planned time %q: want HH:MM", s)
	}

	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("parse planned time %q: invalid hour", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("parse planned time %q: invalid minute", s)
	}

	return h*60 + m, nil
}

// ClassifyArrival maps a planned HH:MM time and an actual timestamp to an
// on-time classification. The signed difference is normalized into
// (-12h, +12h] so an actual that crosses midnight compares against the
// nearest occurrence of the planned time rather than a 23-hour miss.
func ClassifyArrival(plannedHHMM string, actual time.Time, tolerance time.Duration) (OnTimeStatus, error) {
	planned, err := ParseHHMM(plannedHHMM)
	if err != nil {
		return "", err
	}

	actualMin := actual.Hour()*60 + actual.Minute()

	diff := actualMin - planned
	if diff > minutesPerDay/2 {
		diff -= minutesPerDay
	}
	if diff <= -minutesPerDay/2 {
		diff += minutesPerDay
	}

	tol := int(tolerance.Minutes())
	switch {
	case diff > tol:
		return OnTimeLate, nil
	case diff < -tol:
		return OnTimeEarly, nil
	default:
		return OnTimeOK, nil
	}
}

// OnTimePerformance aggregates stop classifications into an event-level
// percentage: stops that arrived early or on time over all classified stops.
// It returns nil when no stop has a classification yet. Recomputed from
// scratch on every call so the figure never drifts from its inputs.
func OnTimePerformance(stops []*StopProgress) *int {
	classified := 0
	good := 0
	for _, sp := range stops {
		if sp.OnTimeStatus == nil {
			continue
		}
		classified++
		if *sp.OnTimeStatus == OnTimeOK || *sp.OnTimeStatus == OnTimeEarly {
			good++
		}
	}

	if classified == 0 {
		return nil
	}

	pct := int(math.Round(float64(good) / float64(classified) * 100))
	return &pct
}

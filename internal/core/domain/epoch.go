package domain

import (
	"time"
)

// Epoch defaults, matching the canvas calendar the clients display.
const (
	DefaultEpochDuration = 72 * time.Hour
	DefaultCheckInterval = 10 * time.Second
)

// DefaultEpochAnchor is the start of epoch 0.
var DefaultEpochAnchor = time.Date(2024, time.April, 2, 0, 1, 0, 0, time.UTC)

// Epoch is one time-boxed canvas period. End is exclusive.
type Epoch struct {
	Number int64     `json:"epoch_number"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
}

// Contains reports whether t falls inside the epoch.
func (e Epoch) Contains(t time.Time) bool {
	return !t.Before(e.Start) && t.Before(e.End)
}

// Schedule is the epoch calendar. Every method is a pure function of the
// anchor, the duration and the instant passed in, so two processes with the
// same schedule agree on epoch numbers across restarts.
type Schedule struct {
	Anchor   time.Time
	Duration time.Duration
}

// DefaultSchedule returns the production calendar.
func DefaultSchedule() Schedule {
	return Schedule{Anchor: DefaultEpochAnchor, Duration: DefaultEpochDuration}
}

// NumberAt returns floor((t - anchor) / duration). Instants before the
// anchor yield negative numbers.
func (s Schedule) NumberAt(t time.Time) int64 {
	elapsed := t.Sub(s.Anchor)
	n := int64(elapsed / s.Duration)
	if elapsed < 0 && elapsed%s.Duration != 0 {
		n--
	}
	return n
}

// Epoch returns the epoch with the given number.
func (s Schedule) Epoch(number int64) Epoch {
	start := s.Anchor.Add(time.Duration(number) * s.Duration)
	return Epoch{Number: number, Start: start, End: start.Add(s.Duration)}
}

// At returns the epoch containing t.
func (s Schedule) At(t time.Time) Epoch {
	return s.Epoch(s.NumberAt(t))
}

// Boundaries describes the running epoch relative to an instant.
type Boundaries struct {
	EpochNumber     int64     `json:"epoch_number"`
	LastReset       time.Time `json:"last_reset"`
	NextReset       time.Time `json:"next_reset"`
	TimeRemainingMs int64     `json:"time_remaining_ms"`
}

// Boundaries returns the last and next reset around now and the time left.
func (s Schedule) Boundaries(now time.Time) Boundaries {
	e := s.At(now)
	return Boundaries{
		EpochNumber:     e.Number,
		LastReset:       e.Start,
		NextReset:       e.End,
		TimeRemainingMs: e.End.Sub(now).Milliseconds(),
	}
}

// Countdown is the time left in the running epoch split into display units.
type Countdown struct {
	Days    int `json:"days"`
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// Countdown returns the remaining time until the next reset.
func (s Schedule) Countdown(now time.Time) Countdown {
	left := s.At(now).End.Sub(now)
	return Countdown{
		Days:    int(left / (24 * time.Hour)),
		Hours:   int(left % (24 * time.Hour) / time.Hour),
		Minutes: int(left % time.Hour / time.Minute),
		Seconds: int(left % time.Minute / time.Second),
	}
}

// Valid reports whether the schedule can compute epochs.
func (s Schedule) Valid() bool {
	return s.Duration > 0 && !s.Anchor.IsZero()
}

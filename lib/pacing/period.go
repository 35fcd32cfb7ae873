// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pacing

import "time"

// Period classifies how long the counterpart has been quiet.
type Period int

const (
	Active Period = iota
	Short
	Long
	TooLong
)

// periodBounds lists, per period, the inclusive upper bound on time
// since the last received message and the minimum pause since the last
// sent one. TooLong has no upper bound.
var periodBounds = [...]struct {
	quiet time.Duration
	pause time.Duration
}{
	Active:  {quiet: time.Minute, pause: time.Minute},
	Short:   {quiet: 5 * time.Minute, pause: time.Minute},
	Long:    {quiet: 10 * time.Minute, pause: 2 * time.Minute},
	TooLong: {quiet: -1, pause: 2 * time.Minute},
}

func (p Period) String() string {
	switch p {
	case Active:
		return "active"
	case Short:
		return "short"
	case Long:
		return "long"
	case TooLong:
		return "too_long"
	}
	return "unknown"
}

// Timeout is the longest quiet time that still falls in p. TooLong
// reports a negative duration: it has no upper bound.
func (p Period) Timeout() time.Duration { return periodBounds[p].quiet }

// MinimumPause is how long the bot must stay quiet after its own last
// message before it may send proactively while in p.
func (p Period) MinimumPause() time.Duration { return periodBounds[p].pause }

// Classify returns the period for a conversation whose counterpart
// last wrote at lastReceived. A zero lastReceived means the
// counterpart never wrote, which is TooLong. Boundaries are inclusive:
// exactly one minute of quiet is still Active.
func Classify(lastReceived, now time.Time) Period {
	if lastReceived.IsZero() {
		return TooLong
	}
	quiet := now.Sub(lastReceived)
	for _, period := range []Period{Active, Short, Long} {
		if quiet <= period.Timeout() {
			return period
		}
	}
	return TooLong
}

package streak

import (
	"testing"
	"time"
)

func ts(value string) time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic(err)
	}
	return t
}

func TestAdvance(t *testing.T) {
	dayD := ts("2026-03-10T15:00:00Z")

	tests := []struct {
		name        string
		state       State
		now         time.Time
		wantCurrent int
		wantLongest int
		wantRestart bool
	}{
		{
			name:        "first activity",
			state:       State{},
			now:         dayD,
			wantCurrent: 1,
			wantLongest: 1,
			wantRestart: true,
		},
		{
			name:        "same day keeps streak",
			state:       activeState(3, "2026-03-10T02:00:00Z"),
			now:         ts("2026-03-10T23:59:00Z"),
			wantCurrent: 3,
			wantLongest: 3,
		},
		{
			name:        "next day increments",
			state:       activeState(3, "2026-03-10T23:00:00Z"),
			now:         ts("2026-03-11T01:00:00Z"),
			wantCurrent: 4,
			wantLongest: 4,
		},
		{
			name:        "gap of two days resets",
			state:       activeState(5, "2026-03-10T12:00:00Z"),
			now:         ts("2026-03-12T12:00:00Z"),
			wantCurrent: 1,
			wantLongest: 5,
			wantRestart: true,
		},
		{
			name:        "gap of three days resets",
			state:       activeState(5, "2026-03-10T12:00:00Z"),
			now:         ts("2026-03-13T12:00:00Z"),
			wantCurrent: 1,
			wantLongest: 5,
			wantRestart: true,
		},
		{
			name:        "month boundary counts as one day",
			state:       activeState(2, "2026-03-31T23:30:00Z"),
			now:         ts("2026-04-01T00:10:00Z"),
			wantCurrent: 3,
			wantLongest: 3,
		},
		{
			name:        "year boundary counts as one day",
			state:       activeState(9, "2025-12-31T10:00:00Z"),
			now:         ts("2026-01-01T10:00:00Z"),
			wantCurrent: 10,
			wantLongest: 10,
		},
		{
			name:        "clock skew treated as same day",
			state:       activeState(2, "2026-03-10T12:00:00Z"),
			now:         ts("2026-03-10T11:00:00Z"),
			wantCurrent: 2,
			wantLongest: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.state.StartedAt

			got := Advance(tt.state, tt.now)

			if got.Current != tt.wantCurrent {
				t.Fatalf("Current = %d, want %d", got.Current, tt.wantCurrent)
			}
			if got.Longest != tt.wantLongest {
				t.Fatalf("Longest = %d, want %d", got.Longest, tt.wantLongest)
			}
			if got.LastAt == nil || !got.LastAt.Equal(tt.now) {
				t.Fatalf("LastAt = %v, want %v", got.LastAt, tt.now)
			}

			if tt.wantRestart {
				if got.StartedAt == nil || !got.StartedAt.Equal(tt.now) {
					t.Fatalf("StartedAt = %v, want restart at %v", got.StartedAt, tt.now)
				}
			} else if before != nil {
				if got.StartedAt == nil || !got.StartedAt.Equal(*before) {
					t.Fatalf("StartedAt = %v, want unchanged %v", got.StartedAt, *before)
				}
			}
		})
	}
}

func TestAdvanceLongestPreserved(t *testing.T) {
	s := State{}
	day := ts("2026-03-01T09:00:00Z")

	// Семь дней подряд, пропуск, затем два дня подряд.
	for i := 0; i < 7; i++ {
		s = Advance(s, day.AddDate(0, 0, i))
	}
	if s.Current != 7 || s.Longest != 7 {
		t.Fatalf("after 7 days: Current = %d, Longest = %d", s.Current, s.Longest)
	}

	s = Advance(s, day.AddDate(0, 0, 10))
	s = Advance(s, day.AddDate(0, 0, 11))

	if s.Current != 2 {
		t.Fatalf("Current = %d, want 2", s.Current)
	}
	if s.Longest != 7 {
		t.Fatalf("Longest = %d, want 7", s.Longest)
	}
}

func activeState(current int, lastAt string) State {
	last := ts(lastAt)
	started := last.AddDate(0, 0, -(current - 1))
	return State{
		Current:   current,
		Longest:   current,
		StartedAt: &started,
		LastAt:    &last,
	}
}

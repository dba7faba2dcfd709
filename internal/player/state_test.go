package player

import "testing"

func TestStateTransitions(t *testing.T) {
	tests := []struct {
		from, to State
		ok       bool
	}{
		{StateIdle, StateLoading, true},
		{StateLoading, StatePlaying, true},
		{StateLoading, StateLoading, true},
		{StatePlaying, StatePaused, true},
		{StatePaused, StatePlaying, true},
		{StatePlaying, StateStopping, true},
		{StateStopping, StateLoading, true},
		{StateStopping, StateIdle, true},
		{StateStopping, StateStopped, true},

		{StateIdle, StatePlaying, false},
		{StateIdle, StatePaused, false},
		{StatePaused, StateIdle, false},
		{StateStopped, StateLoading, false},
		{StateStopped, StateIdle, false},
		{StatePlaying, StateStopped, false},
	}

	for _, tt := range tests {
		if got := tt.from.canEnter(tt.to); got != tt.ok {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.ok)
		}
	}
}

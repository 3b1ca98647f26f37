package job

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from State
		to   State
		want bool
	}{
		{"queued to running", Queued, Running, true},
		{"queued to canceled", Queued, Canceled, true},
		{"queued to failed", Queued, Failed, true},
		{"queued to succeeded", Queued, Succeeded, false},
		{"running to succeeded", Running, Succeeded, true},
		{"running to failed", Running, Failed, true},
		{"running to canceled", Running, Canceled, true},
		{"running to killed", Running, Killed, true},
		{"running to queued", Running, Queued, false},
		{"failed to queued (retry)", Failed, Queued, true},
		{"killed to queued (retry)", Killed, Queued, true},
		{"failed to running", Failed, Running, false},
		{"succeeded is terminal", Succeeded, Queued, false},
		{"canceled is terminal", Canceled, Queued, false},
		{"unknown source state", State("BOGUS"), Queued, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestState_IsTerminal(t *testing.T) {
	terminal := []State{Succeeded, Failed, Canceled, Killed}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s.IsTerminal() = false, want true", s)
		}
	}
	nonTerminal := []State{Queued, Running}
	for _, s := range nonTerminal {
		if s.IsTerminal() {
			t.Errorf("%s.IsTerminal() = true, want false", s)
		}
	}
}

func TestState_Valid(t *testing.T) {
	for _, s := range []State{Queued, Running, Succeeded, Failed, Canceled, Killed} {
		if !s.Valid() {
			t.Errorf("%s.Valid() = false, want true", s)
		}
	}
	if State("NOPE").Valid() {
		t.Error(`State("NOPE").Valid() = true, want false`)
	}
}

func TestLoadLevel_Valid(t *testing.T) {
	for _, l := range []LoadLevel{High, Medium, Low} {
		if !l.Valid() {
			t.Errorf("%s.Valid() = false, want true", l)
		}
	}
	if LoadLevel("URGENT").Valid() {
		t.Error(`LoadLevel("URGENT").Valid() = true, want false`)
	}
}

func TestJob_Snapshot_IsIndependentCopy(t *testing.T) {
	code := 0
	j := &Job{
		Manifest: Manifest{
			ID:               "job-deadbeef",
			Command:          []string{"echo", "hi"},
			RetryOnExitCodes: []int{1, 2},
		},
		State:        Queued,
		ExitCode:     &code,
		RetryHistory: []string{"first"},
	}

	snap := j.Snapshot()
	snap.Command[0] = "mutated"
	snap.RetryOnExitCodes[0] = 99
	snap.RetryHistory[0] = "mutated"
	*snap.ExitCode = 42

	if j.Command[0] != "echo" {
		t.Errorf("original Command mutated through snapshot: got %q", j.Command[0])
	}
	if j.RetryOnExitCodes[0] != 1 {
		t.Errorf("original RetryOnExitCodes mutated through snapshot: got %d", j.RetryOnExitCodes[0])
	}
	if j.RetryHistory[0] != "first" {
		t.Errorf("original RetryHistory mutated through snapshot: got %q", j.RetryHistory[0])
	}
	if *j.ExitCode != 0 {
		t.Errorf("original ExitCode mutated through snapshot: got %d", *j.ExitCode)
	}
}

func TestJob_Policy(t *testing.T) {
	j := &Job{
		Manifest: Manifest{
			MaxRetries:             3,
			RetryDelaySeconds:      10,
			RetryBackoffMultiplier: 1.5,
			RetryOnExitCodes:       []int{1},
		},
	}
	p := j.Policy()
	if p.MaxRetries != 3 || p.RetryDelaySeconds != 10 || p.RetryBackoffMultiplier != 1.5 {
		t.Errorf("Policy() = %+v, want fields copied from manifest", p)
	}
	if len(p.RetryOnExitCodes) != 1 || p.RetryOnExitCodes[0] != 1 {
		t.Errorf("Policy().RetryOnExitCodes = %v, want [1]", p.RetryOnExitCodes)
	}
}

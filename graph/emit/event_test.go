package emit

import "testing"

func TestEvent_IsCritical(t *testing.T) {
	cases := []struct {
		eventType string
		want      bool
	}{
		{"node_started", true},
		{"node_completed", true},
		{"node_failed", true},
		{"run_finished", true},
		{"run_succeeded", true},
		{"run_ended", true},
		{"node_progress", false},
		{"log_line", false},
		{"", false},
	}
	for _, c := range cases {
		got := Event{Type: c.eventType}.IsCritical()
		if got != c.want {
			t.Errorf("Event{Type:%q}.IsCritical() = %v, want %v", c.eventType, got, c.want)
		}
	}
}

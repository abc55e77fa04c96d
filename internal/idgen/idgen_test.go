package idgen

import (
	"strings"
	"testing"
)

func TestReminderIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id, err := ReminderID()
		if err != nil {
			t.Fatalf("ReminderID: %v", err)
		}
		if !strings.HasPrefix(id, ReminderPrefix) {
			t.Fatalf("id %q missing prefix", id)
		}
		if len(id) != len(ReminderPrefix)+Length {
			t.Fatalf("id %q has length %d", id, len(id))
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestTriggerIDPrefix(t *testing.T) {
	id, err := TriggerID()
	if err != nil {
		t.Fatalf("TriggerID: %v", err)
	}
	if !strings.HasPrefix(id, TriggerPrefix) {
		t.Errorf("id %q missing prefix", id)
	}
}

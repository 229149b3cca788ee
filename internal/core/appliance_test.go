package core

import "testing"

// TestApplianceMatcher tests the default naming convention
func TestApplianceMatcher(t *testing.T) {
	m, err := NewApplianceMatcher("")
	if err != nil {
		t.Fatalf("NewApplianceMatcher failed: %v", err)
	}

	cases := []struct {
		name string
		want bool
	}{
		{"Z-VRA-1", true},
		{"Z-VRA-42", true},
		{"Z-VRA-", false},
		{"Z-VRA-abc", false},
		{"z-vra-1", false},
		{"web-01", false},
		{"Z-VRA-1-clone", false},
		{"", false},
	}
	for _, c := range cases {
		if got := m.Match(c.name); got != c.want {
			t.Errorf("Match(%q) = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestApplianceMatcherCustomPattern(t *testing.T) {
	m, err := NewApplianceMatcher(`^repl-appliance-\d+$`)
	if err != nil {
		t.Fatalf("NewApplianceMatcher failed: %v", err)
	}
	if !m.Match("repl-appliance-3") {
		t.Errorf("custom pattern did not match")
	}
	if m.Match("Z-VRA-3") {
		t.Errorf("default convention matched under a custom pattern")
	}

	if _, err := NewApplianceMatcher("("); err == nil {
		t.Errorf("expected an error for an invalid pattern")
	}
}

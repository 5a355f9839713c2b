package version

import "testing"

func TestClientName(t *testing.T) {
	old := Version
	defer func() { Version = old }()

	Version = "1.2.0"
	if got := ClientName(); got != "redisx-1.2.0" {
		t.Errorf("ClientName() = %q", got)
	}

	Version = "1.2.0 rc1"
	if got := ClientName(); got != "redisx-1.2.0_rc1" {
		t.Errorf("ClientName() = %q, want no spaces", got)
	}
}

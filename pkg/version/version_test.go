package version

import (
	"strings"
	"testing"
)

func TestInfo(t *testing.T) {
	info := Info()
	if !strings.Contains(info, "pgedge-warehouse") {
		t.Errorf("Info missing product name: %s", info)
	}
	if !strings.Contains(info, Version) {
		t.Errorf("Info missing version: %s", info)
	}
	if !strings.Contains(info, "schema v"+Schema) {
		t.Errorf("Info missing schema revision: %s", info)
	}
}

func TestShort(t *testing.T) {
	if Short() != Version {
		t.Errorf("Short() = %q, want %q", Short(), Version)
	}
}

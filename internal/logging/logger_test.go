package logging

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestInitFallsBackToInfoOnBadLevel(t *testing.T) {
	defer Init(DefaultConfig())

	Init(Config{Level: "nonsense"})
	if Logger.GetLevel() != zerolog.InfoLevel {
		t.Errorf("Level = %v, want info", Logger.GetLevel())
	}
}

func TestInitParsesLevel(t *testing.T) {
	defer Init(DefaultConfig())

	Init(Config{Level: "warn"})
	if Logger.GetLevel() != zerolog.WarnLevel {
		t.Errorf("Level = %v, want warn", Logger.GetLevel())
	}
}

func TestDefaultConfigPrettyTracksTerminal(t *testing.T) {
	// Under `go test` stderr is normally a pipe, so the default must not
	// force console formatting onto redirected output.
	if DefaultConfig().Pretty != TerminalOutput() {
		t.Error("Default Pretty must follow terminal detection")
	}
}

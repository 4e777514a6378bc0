package static_test

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestMain(m *testing.M) {
	// Keep component debug logs out of test output
	zerolog.SetGlobalLevel(zerolog.Disabled)
	m.Run()
}

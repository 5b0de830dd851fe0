package keystore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	valkeylib "github.com/valkey-io/valkey-go"
)

func TestSetCommand_UsesMilliseconds(t *testing.T) {
	var b valkeylib.Builder

	cases := []struct {
		name string
		ttl  time.Duration
		nx   bool
		want []string
	}{
		{"minutes", 10 * time.Minute, false, []string{"SET", "k", "v", "PX", "600000"}},
		{"sub second", 250 * time.Millisecond, true, []string{"SET", "k", "v", "NX", "PX", "250"}},
		{"zero", 0, true, []string{"SET", "k", "v", "NX", "PX", "1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cmd := setCommand(b, "k", "v", tc.ttl, tc.nx)
			assert.Equal(t, tc.want, cmd.Commands())
		})
	}
}

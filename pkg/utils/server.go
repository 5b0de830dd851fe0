package utils

import (
	"strings"

	"github.com/google/uuid"
)

// ServerID names this process on the shared websocket channel. Each start
// gets a fresh ID unless SERVER_ID pins one; two processes must never share
// it or they drop each other's broadcasts.
func ServerID(override string) string {
	if id := strings.TrimSpace(override); id != "" {
		return id
	}
	return "wabridge-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

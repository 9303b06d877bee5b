package utils

import (
	"log/slog"

	"github.com/denisbrodbeck/machineid"
)

// HWID identifies this machine to the daemon without exposing the raw machine id.
var HWID = hardwareID()

func hardwareID() string {
	id, err := machineid.ProtectedID("syncany")
	if err != nil {
		slog.Debug("machine id unavailable", "error", err)
		return "unknown"
	}
	return id[:16]
}

package app

import (
	"github.com/coreos/go-systemd/v22/daemon"

	"cronjob-trigger/pkg/logging"
)

// notifySystemd sends state to the service manager. Outside systemd, where
// NOTIFY_SOCKET is unset, this is a no-op.
func notifySystemd(state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		logging.Warn("Bootstrap", "Failed to notify systemd (%s): %v", state, err)
		return
	}
	if sent {
		logging.Debug("Bootstrap", "Notified systemd: %s", state)
	}
}

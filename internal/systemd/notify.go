// Package systemd reports service state to the systemd service manager.
package systemd

import (
	"fmt"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/smazurov/apppool/internal/logging"
)

// Notifier sends sd_notify messages. Outside a Type=notify unit
// (NOTIFY_SOCKET unset) every call is a silent no-op.
type Notifier struct {
	logger logging.Logger
}

// NewNotifier creates a notifier. If logger is nil, uses the "systemd" module logger.
func NewNotifier(logger logging.Logger) *Notifier {
	if logger == nil {
		logger = logging.GetLogger("systemd")
	}
	return &Notifier{logger: logger}
}

// Ready tells systemd that startup finished.
func (n *Notifier) Ready() error {
	return n.send(daemon.SdNotifyReady)
}

// Stopping tells systemd that shutdown has begun.
func (n *Notifier) Stopping() error {
	return n.send(daemon.SdNotifyStopping)
}

// Status sets the free-form status line shown by systemctl status.
func (n *Notifier) Status(format string, args ...any) error {
	return n.send("STATUS=" + fmt.Sprintf(format, args...))
}

func (n *Notifier) send(state string) error {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		n.logger.Warn("Failed to notify systemd", "state", state, "error", err)
		return err
	}
	if sent {
		n.logger.Debug("Notified systemd", "state", state)
	}
	return nil
}

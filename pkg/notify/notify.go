// Package notify shows desktop notifications.
package notify

import (
	"fmt"
	"os/exec"

	"tradepost/pkg/core"
)

// NotificationType represents the type of notification
type NotificationType int

const (
	Error NotificationType = iota
	Info
)

func (t NotificationType) String() string {
	if t == Info {
		return "INFO"
	}
	return "ERROR"
}

// NotifyService handles system notifications
type NotifyService struct {
	log           core.Logger
	notifyCommand string
	title         string
	run           func(*exec.Cmd) error
	lookPath      func(string) (string, error)
}

// NewNotifyService creates a new notification service
func NewNotifyService(notifyCommand string, log core.Logger) *NotifyService {
	return &NotifyService{
		log:           log,
		notifyCommand: notifyCommand,
		title:         "Trading Post",
		run:           (*exec.Cmd).Run,
		lookPath:      exec.LookPath,
	}
}

// Show displays a notification of the specified type. It only fails when no
// channel could deliver it; the message is logged in that case.
func (n *NotifyService) Show(message string, nType NotificationType) error {
	// First try configured notification command if available
	if n.notifyCommand != "" {
		if err := n.executeNotifyCommand(message, nType); err == nil {
			return nil
		}
		n.log.Warn("Custom notification command failed", "command", n.notifyCommand)
	}

	if err := n.trySystemNotification(message, nType); err == nil {
		return nil
	}

	err := fmt.Errorf("no notification channel available")
	n.log.Error("Notification not delivered", err, "type", nType.String(), "message", message)
	return err
}

func (n *NotifyService) executeNotifyCommand(message string, nType NotificationType) error {
	n.log.Debug("Executing notify command", "notifyCommand", n.notifyCommand, "type", nType.String())
	cmd := exec.Command("sh", "-c", n.notifyCommand+` "$0" "$1"`, nType.String(), message)
	return n.run(cmd)
}

package ui

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// NotificationSender delivers a desktop notification
type NotificationSender interface {
	Send(title, message string) error
}

// commandSender runs a platform notification command
type commandSender struct {
	build func(title, message string) *exec.Cmd
}

func (c commandSender) Send(title, message string) error {
	return c.build(title, message).Run()
}

// senderFor returns the notification command for goos, or nil when the
// platform has none
func senderFor(goos string) NotificationSender {
	switch goos {
	case "linux":
		return commandSender{build: func(title, message string) *exec.Cmd {
			return exec.Command("notify-send", title, message)
		}}
	case "darwin":
		return commandSender{build: func(title, message string) *exec.Cmd {
			script := fmt.Sprintf(`display notification %q with title %q`, message, title)
			return exec.Command("osascript", "-e", script)
		}}
	case "windows":
		return commandSender{build: func(title, message string) *exec.Cmd {
			script := fmt.Sprintf(`New-BurntToastNotification -Text '%s', '%s'`,
				strings.ReplaceAll(title, "'", "''"), strings.ReplaceAll(message, "'", "''"))
			return exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", script)
		}}
	default:
		return nil
	}
}

// Notifier prints to the terminal and, when enabled, raises a desktop
// notification as well
type Notifier struct {
	sender NotificationSender
}

// NewNotifier returns a Notifier; desktop delivery only happens when
// desktop is true and the platform supports it
func NewNotifier(desktop bool) *Notifier {
	if !desktop {
		return &Notifier{}
	}
	return &Notifier{sender: senderFor(runtime.GOOS)}
}

// NewNotifierWithSender is used by tests
func NewNotifierWithSender(s NotificationSender) *Notifier {
	return &Notifier{sender: s}
}

// Finished reports the end of a backup run
func (n *Notifier) Finished(s RunSummary) {
	PrintSummary(s)

	title := "flickrbackup " + s.Command
	message := fmt.Sprintf("%d files written", s.Saved)
	if s.Failed() {
		message = fmt.Sprintf("%s, %d failed", message, s.DeadLetters)
	}
	n.send(title, message)
}

// Failed reports a run that stopped with an error
func (n *Notifier) Failed(command string, err error) {
	PrintError("Backup failed", err)
	n.send("flickrbackup "+command, err.Error())
}

func (n *Notifier) send(title, message string) {
	if n.sender == nil {
		return
	}
	// desktop delivery is best effort
	_ = n.sender.Send(title, message)
}

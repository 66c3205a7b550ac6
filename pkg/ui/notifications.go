package ui

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// NotificationSender sends one desktop notification
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender sends notifications on Linux using notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	return exec.Command("notify-send", "--app-name=autored", title, message).Run()
}

// MacOSNotificationSender sends notifications on macOS using osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification %s with title %s`, appleScriptString(message), appleScriptString(title))
	return exec.Command("osascript", "-e", script).Run()
}

func appleScriptString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

// WindowsNotificationSender sends notifications on Windows using PowerShell
type WindowsNotificationSender struct{}

func (w *WindowsNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`
		[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
		$template = [Windows.UI.Notifications.ToastNotificationManager]::GetTemplateContent([Windows.UI.Notifications.ToastTemplateType]::ToastText02)
		$text = $template.GetElementsByTagName("text")
		$text.Item(0).AppendChild($template.CreateTextNode(%s)) | Out-Null
		$text.Item(1).AppendChild($template.CreateTextNode(%s)) | Out-Null
		$toast = [Windows.UI.Notifications.ToastNotification]::new($template)
		[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier("autored").Show($toast)
	`, powerShellString(title), powerShellString(message))
	return exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", script).Run()
}

func powerShellString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Notifier prints a message and mirrors it to the desktop when the platform
// supports it
type Notifier struct {
	sender  NotificationSender
	enabled bool
}

// NewNotifier creates a Notifier for the current platform. With enabled
// false only the console line is printed.
func NewNotifier(enabled bool) *Notifier {
	var sender NotificationSender
	switch runtime.GOOS {
	case "linux":
		sender = &LinuxNotificationSender{}
	case "darwin":
		sender = &MacOSNotificationSender{}
	case "windows":
		sender = &WindowsNotificationSender{}
	}
	return &Notifier{sender: sender, enabled: enabled}
}

// NewNotifierWith creates a Notifier around a given sender
func NewNotifierWith(sender NotificationSender) *Notifier {
	return &Notifier{sender: sender, enabled: true}
}

// Notify prints the message and sends it to the desktop. The returned error
// only reports the desktop part.
func (n *Notifier) Notify(title, message string) error {
	fmt.Fprintf(Out, "\n%s: %s\n", Cyan(title), Yellow(message))
	return n.send(title, message)
}

// SendError reports a failure
func (n *Notifier) SendError(title, message string) {
	fmt.Fprintf(Out, "\n%s: %s\n", Red(title), Red(message))
	_ = n.send(title, message)
}

// SendSuccess reports a success
func (n *Notifier) SendSuccess(title, message string) {
	fmt.Fprintf(Out, "\n%s: %s\n", Green(title), Green(message))
	_ = n.send(title, message)
}

func (n *Notifier) send(title, message string) error {
	if !n.enabled || n.sender == nil {
		return nil
	}
	return n.sender.Send(title, message)
}

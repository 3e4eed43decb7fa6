package telnet

import "log"

// Notifier receives the handler's side effects: the audible bell and
// diagnostic traces. Injecting it keeps the parser core free of real I/O.
type Notifier interface {
	Bell()
	Trace(format string, args ...any)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) Bell() {}

func (NopNotifier) Trace(string, ...any) {}

// LogNotifier writes traces to a standard logger and prints the terminal
// bell control character for Bell.
type LogNotifier struct {
	Logger *log.Logger
}

func (n LogNotifier) Bell() {
	if n.Logger != nil {
		n.Logger.Print("\a")
	}
}

func (n LogNotifier) Trace(format string, args ...any) {
	if n.Logger != nil {
		n.Logger.Printf(format, args...)
	}
}

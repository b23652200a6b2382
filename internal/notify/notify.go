package notify

import "log/slog"

// Notifier is the user-facing notification channel (the toast analog).
// Stores report outcomes here and nowhere else.
type Notifier interface {
	Success(msg string)
	Error(msg string)
	Info(msg string)
}

type SlogNotifier struct {
	L *slog.Logger
}

func (n *SlogNotifier) Success(msg string) {
	n.L.Info("notification", "kind", "success", "message", msg)
}

func (n *SlogNotifier) Error(msg string) {
	n.L.Warn("notification", "kind", "error", "message", msg)
}

func (n *SlogNotifier) Info(msg string) {
	n.L.Info("notification", "kind", "info", "message", msg)
}

type Discard struct{}

func (Discard) Success(string) {}
func (Discard) Error(string)   {}
func (Discard) Info(string)    {}

package core

import "context"

type (
	// Notifier surfaces fire-and-forget messages to the user; the UI decides
	// how to render them (toast, status bar, stderr). Calls must not block.
	Notifier interface {
		Success(msg string)
		Error(msg string)
		Info(msg string)
	}

	// Confirmer is the yes/no gate awaited before every destructive or
	// state-changing commit. A cancelled ctx reads as "no": the pending
	// action must not fire.
	Confirmer interface {
		Confirm(ctx context.Context, msg string) bool
	}
)

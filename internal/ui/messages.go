package ui

import "porthole/internal/coordinator"

// promptRequestMsg asks the app to show a dialog.
type promptRequestMsg struct{ req *promptRequest }

// promptCancelMsg withdraws a dialog whose caller stopped waiting.
type promptCancelMsg struct{ req *promptRequest }

// StatusMsg reports an update lifecycle transition to the status line.
type StatusMsg struct {
	Transition coordinator.Transition
}

// ToastMsg shows a short-lived notice above the footer.
type ToastMsg struct {
	Text string
}

// toastExpiredMsg clears the toast with the given sequence number.
type toastExpiredMsg struct{ seq int }

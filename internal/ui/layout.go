package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which only the focused
	// channel pane is drawn instead of all panes side by side.
	LayoutCompactWidth = 100

	// LayoutDateWidth is the minimum width to show order dates in rows.
	LayoutDateWidth = 72
)

// Log display limits.
const (
	// LogTailLimit is the maximum number of log records read per refresh.
	LogTailLimit = 400
)

// Timing constants.
const (
	// StatusMessageTTL is how long a status note stays in the header.
	StatusMessageTTL = 5 * time.Second

	// ReloadConfirmWindow is how long a reload stays armed when unsaved
	// exclusion changes would be discarded by it.
	ReloadConfirmWindow = 3 * time.Second

	// DefaultPollInterval is the fallback health poll cadence.
	DefaultPollInterval = 5 * time.Second
)

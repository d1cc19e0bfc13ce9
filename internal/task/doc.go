// Package task runs AI work asynchronously behind a priority-aware queue.
// Submissions are admitted in priority order (FIFO within a priority band),
// executed by a fixed-size worker pool, and tracked through a small state
// machine so callers can poll progress and results long after submission.
package task

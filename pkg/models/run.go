// Package models holds types shared between pix components.
package models

import "time"

// RunStatus is how a wrapped run ended.
type RunStatus string

const (
	// RunStatusSucceeded indicates the program exited with status 0.
	RunStatusSucceeded RunStatus = "succeeded"
	// RunStatusFailed indicates a non-zero exit status.
	RunStatusFailed RunStatus = "failed"
	// RunStatusAborted indicates pix gave up before the program exited,
	// e.g. on a strict-mode decode error or an interrupt.
	RunStatusAborted RunStatus = "aborted"
)

// Valid returns true if the status is a known value.
func (s RunStatus) Valid() bool {
	switch s {
	case RunStatusSucceeded, RunStatusFailed, RunStatusAborted:
		return true
	default:
		return false
	}
}

// StatusForExit maps an exit code to a status.
func StatusForExit(code int) RunStatus {
	if code == 0 {
		return RunStatusSucceeded
	}
	return RunStatusFailed
}

// Run summarizes one wrapped command.
type Run struct {
	// ID is the unique identifier for this run.
	ID string `json:"id"`
	// Command is the program and arguments as the user typed them.
	Command string `json:"command"`
	// StartedAt is when the program was started.
	StartedAt time.Time `json:"started_at"`
	// Duration is how long the program ran.
	Duration time.Duration `json:"duration"`
	// Status is how the run ended.
	Status RunStatus `json:"status"`
	// ExitCode is the exit status of the program.
	ExitCode int `json:"exit_code"`
	// Builds is the number of derivations built.
	Builds uint64 `json:"builds"`
	// FailedBuilds is the number of builds that reported an error.
	FailedBuilds uint64 `json:"failed_builds"`
	// Downloads is the number of store paths downloaded.
	Downloads uint64 `json:"downloads"`
	// DownloadedBytes is the total size of those downloads.
	DownloadedBytes uint64 `json:"downloaded_bytes"`
}

// Succeeded reports whether the run exited cleanly.
func (r *Run) Succeeded() bool {
	return r.Status == RunStatusSucceeded
}

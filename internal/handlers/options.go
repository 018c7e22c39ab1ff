package handlers

import "sync"

// DefaultDownloadThreshold is the smallest transfer that gets its own bar.
const DefaultDownloadThreshold = 10 * 1024 * 1024

// Options tunes handler rendering.
type Options struct {
	// Debug adds a bar showing the handler list length.
	Debug bool
	// SummaryDownload prints a line for every finished download that had a
	// progress report.
	SummaryDownload bool
	// LogHistory is how many log lines of a build are printed when it
	// stops. Zero keeps everything.
	LogHistory int
	// LogHistoryFailure replaces LogHistory for builds reported as failed.
	LogHistoryFailure int
	// LogWindow is how many recent log lines a build group shows live.
	// Zero disables the window.
	LogWindow int
	// DownloadThreshold is the expected size from which a transfer is drawn.
	DownloadThreshold uint64
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		LogHistory:        1000,
		LogHistoryFailure: 1000,
		LogWindow:         10,
		DownloadThreshold: DefaultDownloadThreshold,
	}
}

// Tally accumulates what a session did, for the run summary.
type Tally struct {
	mu              sync.Mutex
	builds          uint64
	failedBuilds    uint64
	downloads       uint64
	downloadedBytes uint64
}

// TallySnapshot is a copy of the counters of a Tally.
type TallySnapshot struct {
	Builds          uint64
	FailedBuilds    uint64
	Downloads       uint64
	DownloadedBytes uint64
}

// Snapshot returns the current counters.
func (t *Tally) Snapshot() TallySnapshot {
	if t == nil {
		return TallySnapshot{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return TallySnapshot{
		Builds:          t.builds,
		FailedBuilds:    t.failedBuilds,
		Downloads:       t.downloads,
		DownloadedBytes: t.downloadedBytes,
	}
}

func (t *Tally) addBuild(failed bool) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.builds++
	if failed {
		t.failedBuilds++
	}
	t.mu.Unlock()
}

func (t *Tally) addDownload(bytes uint64) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.downloads++
	t.downloadedBytes += bytes
	t.mu.Unlock()
}

// shared is the state common to every handler of a session.
type shared struct {
	opts  Options
	tally *Tally
}

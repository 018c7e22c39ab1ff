// Package handlers implements the handlers that turn protocol events into
// progress bars, log windows and summary lines.
//
// Seed plugs the always-on detectors into an Engine. Each detector watches
// for the Start event of one kind of work and plugs the stateful handler
// that follows it until its Stop.
package handlers

// Package tui draws the live progress region of a wrapped command.
//
// Display is the interactive surface: a bubbletea program rendering inline
// on the terminal, below everything printed so far. Handlers never touch
// the program directly; every surface call is turned into a message and
// applied by the program loop, so the board is only ever read and written
// from one goroutine.
//
// Plain keeps the same slots in memory but only ever prints the lines
// handed to Println. It is used when stderr is not a terminal and by tests.
//
// Both lay out the board the same way: bars in creation order, each log
// window right below the bar it is anchored to, and a dim header naming
// the command while anything is live.
package tui

// Package viz draws the four-bar linkage in the terminal.
//
// The live view is a Bubble Tea program that advances a
// [mechanism.Session] on a fixed 50 ms tick, solves the linkage pose for
// the current input angle and draws it on a Braille [Canvas].
//
// # Key Bindings
//
//	Up/K    - Raise the start angle and restart
//	Down/J  - Lower the start angle and restart
//	R       - Restart from the current start angle
//	Space   - Pause/Resume
//	T       - Cycle color themes
//	G       - Toggle GIF recording
//	?       - Show help overlay
//	Q       - Quit
//
// When the drive settles the tick stops and a theta-vs-time plot of the
// run is shown beside the linkage.
package viz

// Package viz renders integrations live in the terminal.
//
// [Model] is a Bubble Tea program that advances an experiment frame by frame
// and draws it on a Braille [Canvas]. [Menu] picks a preset and hands it to
// a Model.
//
// # Key Bindings
//
//	Space - Pause/Resume
//	R     - Restart from the initial state
//	Tab   - Select parameter
//	Up/K  - Increase parameter (+5%)
//	Down/J- Decrease parameter (-5%)
//	[ ]   - Step back and forth through recent frames
//	T     - Cycle color themes
//	?     - Toggle help
//	Q     - Quit
package viz

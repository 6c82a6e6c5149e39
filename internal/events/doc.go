// Package events detects and locates crossings of scalar trajectory
// functions.
//
// A [Detector] is checked once per accepted step. When the difference
// between its function and its goal changes sign in the configured
// [Direction], [Detector.Locate] brackets the step and runs a root solver on
// a caller supplied [StateAt] function to find the crossing time.
package events

// Package countdown drives a live code display: once per interval it asks a
// Source for the secrets on screen, derives the current code and the seconds
// left in the step for each, and hands the result to the view.
//
// A Driver run is owned by exactly one view. Run stops its ticker before
// returning, so tearing the view down (cancelling its context) releases every
// timer the run created.
package countdown

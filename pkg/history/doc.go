// Package history keeps a journal of publish attempts.
//
// Every cycle, manual publish and video upload opens a record before the
// browser work starts and closes it with the outcome, so an interrupted run
// still shows up as "running". The journal is one JSON file written
// atomically; failed records keep the error class and the publish step.
package history

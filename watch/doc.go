// Package watch reruns a program when its sources change.
//
// A [Loop] turns file system events from the target's directory into jobs.
// A single consumer handles jobs serially, resetting the runtime before
// each one, so a job that exhausts the arena does not affect the next.
// Changes that arrive while a job is still waiting are folded into it.
package watch

// Package engine turns a departure station into a light schedule.
//
// Run estimates the travel time, tells the user when the lights will be on
// and hands two trigger jobs to a Planner. The schedule is derived from the
// instant the estimate was requested, never from when the reply is sent.
package engine

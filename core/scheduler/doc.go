// Package scheduler fires light triggers at computed wall-clock instants.
//
// Jobs are keyed by user, phase and firing time and are persisted in a
// Store before a timer is armed, so a restarted process reloads and fires
// whatever is still pending. Scheduling a new plan for a user cancels that
// user's pending jobs: the last request wins.
package scheduler

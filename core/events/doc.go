// Package events defines the schedule related events emitted on the event bus.
//
// Available event types:
//   - ScheduleEvent: an estimate was computed for a user request
//   - JobEvent: a trigger job changed state
package events

// Package events provides types and interfaces for an event-driven architecture.
//
// Background task completions are published as TaskCompletedEvent values so that
// logging, counters and any future notifiers can react without the task package
// knowing about them.
//
// The primary components are:
//   - TaskCompletedEvent: announces a task's terminal state
//   - EventHandler: interface for components that can handle events
//   - EventEmitter: interface for components that can emit events
package events

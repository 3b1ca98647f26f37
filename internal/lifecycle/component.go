// Package lifecycle defines the Component contract for long-running barn
// subsystems. barn.Service exposes its Start/Stop as a SimpleComponent
// (via Service.AsComponent) so it can be registered with a
// ComponentManager.
package lifecycle

import "errors"

// ComponentState is the lifecycle state of a Component.
type ComponentState int

const (
	// Unknown is the state before a component has ever been started.
	Unknown ComponentState = iota
	// Error is the state after Start or Stop returns an error.
	Error
	// Stopped is the state after a clean Stop.
	Stopped
	// Stopping is the state while Stop is in flight.
	Stopping
	// Running is the state after a clean Start.
	Running
	// Starting is the state while Start is in flight.
	Starting
)

// ErrCompNotFound is returned by a ComponentManager for an unregistered id.
var ErrCompNotFound = errors.New("component not found")

// ErrCompAlreadyStarted is returned when Start is called on a running component.
var ErrCompAlreadyStarted = errors.New("component already started")

// ErrCompAlreadyStopped is returned when Stop is called on a stopped component.
var ErrCompAlreadyStopped = errors.New("component already stopped")

// Component is the interface long-running barn subsystems implement.
type Component interface {
	// Id is the component's unique identifier.
	Id() string
	// OnChange registers a callback invoked on every state transition.
	OnChange(f func(prevState, newState ComponentState))
	// Start starts the component.
	Start() error
	// Stop stops the component.
	Stop() error
	// State returns the component's current state.
	State() ComponentState
}

// ComponentManager manages the lifecycle of a set of registered Components.
type ComponentManager interface {
	// GetState returns the state of the component with the given id.
	GetState(id string) ComponentState
	// List returns every registered Component.
	List() []Component
	// Register registers a component, returning any component previously
	// registered under the same id.
	Register(component Component) Component
	// StartAll starts every registered component in registration order.
	StartAll() error
	// StartAndWait starts every component and blocks until StopAll is called.
	StartAndWait()
	// Start starts the component with the given id.
	Start(id string) error
	// StopAll stops every registered component in reverse registration order.
	StopAll() error
	// Stop stops the component with the given id.
	Stop(id string) error
	// Unregister removes a component, stopping it first if running.
	Unregister(id string)
	// Wait blocks until StopAll has been called.
	Wait()
}

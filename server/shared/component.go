package shared

import "context"

// Component is a long-lived part of the server that the loader shuts down
// in reverse start order
type Component interface {
	// GetType returns the component type identifier
	GetType() string

	// Shutdown releases the component's resources
	Shutdown(ctx context.Context) error
}

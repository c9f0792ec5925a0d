package domain

import "errors"

// Sentinel errors for the domain layer. These provide consistent, checkable
// errors for common business logic failures.
var (
	ErrNotFound           = errors.New("requested resource not found")
	ErrInvalidCredentials = errors.New("invalid credentials provided")

	// ErrModuleInUse is returned when unregistering a module that another
	// registered module still declares as a dependency.
	ErrModuleInUse = errors.New("module is a dependency of another registered module")

	// ErrDependencyCycle is returned when module initialization encounters a
	// circular dependency declaration.
	ErrDependencyCycle = errors.New("circular module dependency")
)

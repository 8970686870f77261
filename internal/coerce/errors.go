package coerce

import "fmt"

// Error reports a value that could not be coerced to or from a leaf type.
// It is request-fatal when raised during variable or argument coercion and
// field-local when raised during result serialization.
type Error struct {
	Type   string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("cannot coerce value for type %s: %s", e.Type, e.Reason)
}

// ConfigError reports a named type with no registered Coercing. This is a
// configuration defect, not a per-request condition; builders surface it at
// assembly time.
type ConfigError struct {
	Type string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("no coercing registered for type %s", e.Type)
}

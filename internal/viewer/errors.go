package viewer

import "fmt"

// TargetMissingError means the render container could not be found.
type TargetMissingError struct {
	Selector string
}

func (e *TargetMissingError) Error() string {
	return fmt.Sprintf("viewer: render node %q does not exist", e.Selector)
}

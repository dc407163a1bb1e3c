package response

import "fmt"

// NotFoundError reports a reference to a node id no longer present in the
// arena, typically because it was already consumed by TakeValue or removed
// by Delete.
type NotFoundError struct{ ID ResponseNodeId }

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("response: node %d not found", e.ID)
}

// NotAContainerError reports an Append targeting a node that is not a
// Container.
type NotAContainerError struct{ ID ResponseNodeId }

func (e *NotAContainerError) Error() string {
	return fmt.Sprintf("response: node %d is not a container", e.ID)
}

// NotAListError reports a Push targeting a node that is not a List.
type NotAListError struct{ ID ResponseNodeId }

func (e *NotAListError) Error() string {
	return fmt.Sprintf("response: node %d is not a list", e.ID)
}

package framegraph

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCycleDetected          = errors.New("frame graph contains a cycle")
	ErrConcurrentAccessHazard = errors.New("concurrent access hazard")
	ErrAllocationFailed       = errors.New("physical resource allocation failed")
	ErrStaleGraph             = errors.New("compiled graph outlived its physical resources")
	ErrAlreadyExecuted        = errors.New("compiled graph already executed")
)

// CycleError is returned by Compile when the declared graph is not acyclic.
type CycleError struct {
	// Cycle lists the nodes of one cycle, the first node repeated at the end.
	Cycle []string
	// Unscheduled lists every node the sort could not place.
	Unscheduled []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s: %s (%d nodes unscheduled)", ErrCycleDetected, strings.Join(e.Cycle, " -> "), len(e.Unscheduled))
}

func (e *CycleError) Is(target error) bool {
	return target == ErrCycleDetected
}

// AsCycleError returns the CycleError in err's chain, or nil.
func AsCycleError(err error) *CycleError {
	var cerr *CycleError
	if errors.As(err, &cerr) {
		return cerr
	}
	return nil
}

// HazardError describes one resource version consumed by passes that may run
// against the same memory without an ordering between them.
type HazardError struct {
	ResourceIndex int
	Resource      string
	Version       int32
	Readers       []string
	Writers       []string
}

func (e *HazardError) Error() string {
	return fmt.Sprintf("%s on resource %d (%q version %d): writers [%s] readers [%s]",
		ErrConcurrentAccessHazard, e.ResourceIndex, e.Resource, e.Version,
		strings.Join(e.Writers, ", "), strings.Join(e.Readers, ", "))
}

func (e *HazardError) Is(target error) bool {
	return target == ErrConcurrentAccessHazard
}

// AllocationError wraps the backend failure met while binding a resource.
type AllocationError struct {
	ResourceIndex int
	Resource      string
	Err           error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("%s for resource %d (%q): %v", ErrAllocationFailed, e.ResourceIndex, e.Resource, e.Err)
}

func (e *AllocationError) Is(target error) bool {
	return target == ErrAllocationFailed
}

func (e *AllocationError) Unwrap() error {
	return e.Err
}

// MalformedGraphError is the panic value for misuse of the declaration API.
type MalformedGraphError struct {
	Node   NodeIndex
	Reason string
}

func (e *MalformedGraphError) Error() string {
	if e.Node == InvalidNode {
		return "malformed frame graph: " + e.Reason
	}
	return fmt.Sprintf("malformed frame graph: node %d: %s", e.Node, e.Reason)
}

func malformed(node NodeIndex, format string, args ...interface{}) {
	panic(&MalformedGraphError{Node: node, Reason: fmt.Sprintf(format, args...)})
}

package metadata

import "fmt"

/**
 * @brief A GPU allocation owned by the physical resource allocator. Logical
 * resources of successive frames get bound to these; identity is the pointer.
 */
type PhysicalResource struct {
	/** @brief Small integer id, unique among live handles. */
	ID uint32
	/** @brief Human readable unique label, used in dumps and backend object names. */
	Label string
	/** @brief The descriptor the allocation was created for. */
	Info ResourceInfo
	/** @brief Frame counter value of the last frame that bound this handle. */
	LastUsedFrame uint64
	/** @brief A pointer to internal, render API-specific data. */
	InternalData interface{}
}

func (pr *PhysicalResource) String() string {
	if pr == nil {
		return "<unbound>"
	}
	return fmt.Sprintf("#%d(%s)", pr.ID, pr.Info)
}

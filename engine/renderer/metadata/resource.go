package metadata

import "fmt"

/** @brief How a pass touches a resource. Kept on every graph edge for diagnostics. */
type ResourceUsage int

const (
	ResourceUsageDefault ResourceUsage = iota
	ResourceUsageRWImage
	ResourceUsageSampledImage
	ResourceUsageRenderTarget
	ResourceUsageUniformBuffer
	ResourceUsageShaderStorageBuffer
	ResourceUsageTransformFeedbackOutput
)

var resourceUsageNames = []string{
	"default",
	"rw_image",
	"sampled_image",
	"render_target",
	"uniform_buffer",
	"shader_storage_buffer",
	"transform_feedback_output",
}

func (u ResourceUsage) String() string {
	if u < 0 || int(u) >= len(resourceUsageNames) {
		return fmt.Sprintf("usage(%d)", int(u))
	}
	return resourceUsageNames[u]
}

// ParseResourceUsage is the inverse of ResourceUsage.String.
func ParseResourceUsage(s string) (ResourceUsage, error) {
	if s == "" {
		return ResourceUsageDefault, nil
	}
	for i, name := range resourceUsageNames {
		if name == s {
			return ResourceUsage(i), nil
		}
	}
	return ResourceUsageDefault, fmt.Errorf("unknown resource usage %q", s)
}

/** @brief The kind of GPU object a logical resource stands for. */
type ResourceKind int

const (
	ResourceKindBuffer ResourceKind = iota
	ResourceKindTexture
)

func (k ResourceKind) String() string {
	switch k {
	case ResourceKindBuffer:
		return "buffer"
	case ResourceKindTexture:
		return "texture"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

/**
 * @brief Describes what a pass asks for: either a buffer of ByteSize bytes or a
 * texture matching Desc. Immutable once created.
 */
type ResourceInfo struct {
	kind     ResourceKind
	byteSize uint64
	desc     TextureDesc
}

func BufferInfo(byteSize uint64) ResourceInfo {
	return ResourceInfo{kind: ResourceKindBuffer, byteSize: byteSize}
}

func TextureInfo(desc TextureDesc) ResourceInfo {
	return ResourceInfo{kind: ResourceKindTexture, desc: desc}
}

func (ri ResourceInfo) Kind() ResourceKind {
	return ri.kind
}

// ByteSize is only meaningful for buffers.
func (ri ResourceInfo) ByteSize() uint64 {
	return ri.byteSize
}

// Texture returns the descriptor and whether the info is a texture at all.
func (ri ResourceInfo) Texture() (TextureDesc, bool) {
	return ri.desc, ri.kind == ResourceKindTexture
}

func (ri ResourceInfo) String() string {
	if ri.kind == ResourceKindBuffer {
		return fmt.Sprintf("buffer[%d bytes]", ri.byteSize)
	}
	return ri.desc.String()
}

// Compatible reports whether a physical resource created for candidate may back
// a logical resource that requested requested. Textures need every descriptor
// field to match, buffers need enough room.
func Compatible(candidate, requested ResourceInfo) bool {
	if candidate.kind != requested.kind {
		return false
	}
	switch requested.kind {
	case ResourceKindBuffer:
		return candidate.byteSize >= requested.byteSize
	case ResourceKindTexture:
		return candidate.desc == requested.desc
	}
	return false
}

/**
 * @brief Span of pass schedule indices during which a logical resource is in use.
 * Both ends are inclusive.
 */
type Lifetime struct {
	Begin int32
	End   int32
}

func (l Lifetime) Overlaps(other Lifetime) bool {
	return RangesOverlap(l.Begin, l.End, other.Begin, other.End)
}

func (l Lifetime) Contains(index int32) bool {
	return index >= l.Begin && index <= l.End
}

func (l Lifetime) String() string {
	return fmt.Sprintf("{%d,%d}", l.Begin, l.End)
}

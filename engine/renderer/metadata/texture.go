package metadata

import (
	"fmt"
	"math/bits"
	"strings"

	"github.com/gogpu/gputypes"
)

/** @brief Number of mip levels a texture wants. Zero asks for the full chain. */
type MipPolicy uint32

const MipPolicyFullChain MipPolicy = 0

func MipLevels(n uint32) MipPolicy {
	return MipPolicy(n)
}

/** @brief Holds bit flags for textures. */
type TextureOptions uint32

const (
	/** @brief Backed by sparse (partially resident) storage. */
	TextureOptionSparse TextureOptions = 0x1
	/** @brief Can be viewed as a cube map. */
	TextureOptionCubeCompatible TextureOptions = 0x2
)

func (o TextureOptions) String() string {
	if o == 0 {
		return "none"
	}
	var parts []string
	if o&TextureOptionSparse != 0 {
		parts = append(parts, "sparse")
	}
	if o&TextureOptionCubeCompatible != 0 {
		parts = append(parts, "cube")
	}
	return strings.Join(parts, "|")
}

/**
 * @brief Everything that makes two texture requests interchangeable. Two
 * descriptors alias only when they compare equal with ==.
 */
type TextureDesc struct {
	Dimension   gputypes.TextureDimension
	Format      gputypes.TextureFormat
	Width       uint32
	Height      uint32
	Depth       uint32
	SampleCount uint32
	Mips        MipPolicy
	Options     TextureOptions
}

// NewTexture2D fills the common case: single sampled, no mips, no options.
func NewTexture2D(format gputypes.TextureFormat, width, height uint32) TextureDesc {
	return TextureDesc{
		Dimension:   gputypes.TextureDimension2D,
		Format:      format,
		Width:       width,
		Height:      height,
		Depth:       1,
		SampleCount: 1,
		Mips:        MipLevels(1),
	}
}

// MipLevelCount resolves the mip policy against the texture extent.
func (td TextureDesc) MipLevelCount() uint32 {
	if td.Mips != MipPolicyFullChain {
		return uint32(td.Mips)
	}
	largest := max(td.Width, td.Height, td.Depth, 1)
	return uint32(bits.Len32(largest))
}

func (td TextureDesc) String() string {
	return fmt.Sprintf("texture[%s %dx%dx%d fmt=%s samples=%d mips=%d opts=%s]",
		DimensionName(td.Dimension), td.Width, td.Height, td.Depth,
		FormatName(td.Format), td.SampleCount, td.MipLevelCount(), td.Options)
}

var textureFormatNames = map[gputypes.TextureFormat]string{
	gputypes.TextureFormatR8Unorm:             "r8unorm",
	gputypes.TextureFormatR16Float:            "r16float",
	gputypes.TextureFormatRGBA8Unorm:          "rgba8unorm",
	gputypes.TextureFormatBGRA8Unorm:          "bgra8unorm",
	gputypes.TextureFormatRGBA16Float:         "rgba16float",
	gputypes.TextureFormatRGBA32Float:         "rgba32float",
	gputypes.TextureFormatDepth24PlusStencil8: "depth24plus-stencil8",
	gputypes.TextureFormatDepth32Float:        "depth32float",
}

func FormatName(f gputypes.TextureFormat) string {
	if name, ok := textureFormatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// ParseTextureFormat maps the lower case WebGPU style names back to formats.
func ParseTextureFormat(s string) (gputypes.TextureFormat, error) {
	for f, name := range textureFormatNames {
		if name == s {
			return f, nil
		}
	}
	return gputypes.TextureFormatUndefined, fmt.Errorf("unknown texture format %q", s)
}

// IsDepthFormat tells the backends whether to create a depth/stencil attachment.
func IsDepthFormat(f gputypes.TextureFormat) bool {
	return f == gputypes.TextureFormatDepth24PlusStencil8 || f == gputypes.TextureFormatDepth32Float
}

func DimensionName(d gputypes.TextureDimension) string {
	switch d {
	case gputypes.TextureDimension1D:
		return "1d"
	case gputypes.TextureDimension2D:
		return "2d"
	case gputypes.TextureDimension3D:
		return "3d"
	}
	return fmt.Sprintf("dim(%d)", int(d))
}

func ParseTextureDimension(s string) (gputypes.TextureDimension, error) {
	switch s {
	case "1d":
		return gputypes.TextureDimension1D, nil
	case "", "2d":
		return gputypes.TextureDimension2D, nil
	case "3d":
		return gputypes.TextureDimension3D, nil
	}
	return gputypes.TextureDimension2D, fmt.Errorf("unknown texture dimension %q", s)
}

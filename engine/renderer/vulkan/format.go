package vulkan

import (
	"github.com/gogpu/gputypes"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

var vulkanFormats = map[gputypes.TextureFormat]vk.Format{
	gputypes.TextureFormatR8Unorm:             vk.FormatR8Unorm,
	gputypes.TextureFormatR16Float:            vk.FormatR16Sfloat,
	gputypes.TextureFormatRGBA8Unorm:          vk.FormatR8g8b8a8Unorm,
	gputypes.TextureFormatBGRA8Unorm:          vk.FormatB8g8r8a8Unorm,
	gputypes.TextureFormatRGBA16Float:         vk.FormatR16g16b16a16Sfloat,
	gputypes.TextureFormatRGBA32Float:         vk.FormatR32g32b32a32Sfloat,
	gputypes.TextureFormatDepth24PlusStencil8: vk.FormatD24UnormS8Uint,
	gputypes.TextureFormatDepth32Float:        vk.FormatD32Sfloat,
}

func VulkanFormat(f gputypes.TextureFormat) (vk.Format, bool) {
	format, ok := vulkanFormats[f]
	return format, ok
}

func VulkanImageType(d gputypes.TextureDimension) vk.ImageType {
	switch d {
	case gputypes.TextureDimension1D:
		return vk.ImageType1d
	case gputypes.TextureDimension3D:
		return vk.ImageType3d
	default:
		return vk.ImageType2d
	}
}

// VulkanSampleCount rounds down to the nearest supported power of two.
func VulkanSampleCount(samples uint32) vk.SampleCountFlagBits {
	switch {
	case samples >= 64:
		return vk.SampleCount64Bit
	case samples >= 32:
		return vk.SampleCount32Bit
	case samples >= 16:
		return vk.SampleCount16Bit
	case samples >= 8:
		return vk.SampleCount8Bit
	case samples >= 4:
		return vk.SampleCount4Bit
	case samples >= 2:
		return vk.SampleCount2Bit
	default:
		return vk.SampleCount1Bit
	}
}

func ImageCreateFlags(options metadata.TextureOptions) vk.ImageCreateFlags {
	var flags vk.ImageCreateFlagBits
	if options&metadata.TextureOptionSparse != 0 {
		flags |= vk.ImageCreateSparseBindingBit
	}
	if options&metadata.TextureOptionCubeCompatible != 0 {
		flags |= vk.ImageCreateCubeCompatibleBit
	}
	return vk.ImageCreateFlags(flags)
}

// ImageUsage picks attachment and sampling bits a frame graph texture may
// need over its lifetime. Storage is limited to formats commonly supporting it.
func ImageUsage(f gputypes.TextureFormat) vk.ImageUsageFlags {
	usage := vk.ImageUsageSampledBit | vk.ImageUsageTransferSrcBit | vk.ImageUsageTransferDstBit
	if metadata.IsDepthFormat(f) {
		return vk.ImageUsageFlags(usage | vk.ImageUsageDepthStencilAttachmentBit)
	}
	usage |= vk.ImageUsageColorAttachmentBit
	switch f {
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatRGBA16Float, gputypes.TextureFormatRGBA32Float:
		usage |= vk.ImageUsageStorageBit
	}
	return vk.ImageUsageFlags(usage)
}

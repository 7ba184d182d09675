package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

type VulkanImage struct {
	Handle vk.Image
	Memory vk.DeviceMemory
	Format vk.Format
	Width  uint32
	Height uint32
	Desc   metadata.TextureDesc
}

func ImageCreate(context *VulkanContext, desc metadata.TextureDesc) (*VulkanImage, error) {
	if desc.Options&metadata.TextureOptionSparse != 0 {
		return nil, fmt.Errorf("sparse textures are not supported by the vulkan backend")
	}
	format, ok := VulkanFormat(desc.Format)
	if !ok {
		return nil, fmt.Errorf("no vulkan format for %s", metadata.FormatName(desc.Format))
	}

	imageInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		Flags:     ImageCreateFlags(desc.Options),
		ImageType: VulkanImageType(desc.Dimension),
		Format:    format,
		Extent: vk.Extent3D{
			Width:  desc.Width,
			Height: desc.Height,
			Depth:  max(desc.Depth, 1),
		},
		MipLevels:     desc.MipLevelCount(),
		ArrayLayers:   1,
		Samples:       VulkanSampleCount(desc.SampleCount),
		Tiling:        vk.ImageTilingOptimal,
		Usage:         ImageUsage(desc.Format),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	if desc.Options&metadata.TextureOptionCubeCompatible != 0 {
		imageInfo.ArrayLayers = 6
	}

	var image vk.Image
	if res := vk.CreateImage(context.Device.LogicalDevice, &imageInfo, context.Allocator, &image); res != vk.Success {
		return nil, fmt.Errorf("failed to create image: %s", VulkanResultString(res, true))
	}

	var requirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(context.Device.LogicalDevice, image, &requirements)
	memory, err := context.allocateMemory(requirements)
	if err != nil {
		vk.DestroyImage(context.Device.LogicalDevice, image, context.Allocator)
		return nil, err
	}
	if res := vk.BindImageMemory(context.Device.LogicalDevice, image, memory, 0); res != vk.Success {
		vk.DestroyImage(context.Device.LogicalDevice, image, context.Allocator)
		vk.FreeMemory(context.Device.LogicalDevice, memory, context.Allocator)
		return nil, fmt.Errorf("failed to bind image memory: %s", VulkanResultString(res, true))
	}

	return &VulkanImage{
		Handle: image,
		Memory: memory,
		Format: format,
		Width:  desc.Width,
		Height: desc.Height,
		Desc:   desc,
	}, nil
}

func (vi *VulkanImage) Destroy(context *VulkanContext) {
	releaseBound(
		func() {
			if vi.Handle != vk.NullImage {
				vk.DestroyImage(context.Device.LogicalDevice, vi.Handle, context.Allocator)
				vi.Handle = vk.NullImage
			}
		},
		func() {
			if vi.Memory != vk.NullDeviceMemory {
				vk.FreeMemory(context.Device.LogicalDevice, vi.Memory, context.Allocator)
				vi.Memory = vk.NullDeviceMemory
			}
		},
	)
}

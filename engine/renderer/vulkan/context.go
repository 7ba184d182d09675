package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/framegraph/engine/core"
)

type VulkanContext struct {
	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks

	debugMessenger vk.DebugReportCallback

	Device *VulkanDevice
}

// FindMemoryIndex returns the first memory type allowed by typeFilter that has
// every bit of propertyFlags, or -1.
func (vc *VulkanContext) FindMemoryIndex(typeFilter, propertyFlags uint32) int32 {
	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(vc.Device.PhysicalDevice, &memoryProperties)
	memoryProperties.Deref()

	for i := uint32(0); i < memoryProperties.MemoryTypeCount; i++ {
		// Check each memory type to see if its bit is set to 1.
		memoryProperties.MemoryTypes[i].Deref()
		if (typeFilter&(1<<i)) != 0 && (uint32(memoryProperties.MemoryTypes[i].PropertyFlags)&propertyFlags) == propertyFlags {
			return int32(i)
		}
	}
	core.LogWarn("Unable to find suitable memory type!")
	return -1
}

// allocateMemory backs a resource with device local memory.
func (vc *VulkanContext) allocateMemory(requirements vk.MemoryRequirements) (vk.DeviceMemory, error) {
	requirements.Deref()

	memoryType := vc.FindMemoryIndex(requirements.MemoryTypeBits, uint32(vk.MemoryPropertyDeviceLocalBit))
	if memoryType == -1 {
		return vk.NullDeviceMemory, fmt.Errorf("required memory type not found: %w", core.ErrOutOfMemory)
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: uint32(memoryType),
	}

	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(vc.Device.LogicalDevice, &allocateInfo, vc.Allocator, &memory); res != vk.Success {
		if res == vk.ErrorOutOfDeviceMemory || res == vk.ErrorOutOfHostMemory {
			return vk.NullDeviceMemory, fmt.Errorf("%s: %w", VulkanResultString(res, false), core.ErrOutOfMemory)
		}
		return vk.NullDeviceMemory, fmt.Errorf("failed to allocate memory: %s", VulkanResultString(res, true))
	}
	return memory, nil
}

// releaseBound tears down an image or buffer: the object is destroyed before
// the memory bound to it is freed.
func releaseBound(destroyObject, freeMemory func()) {
	destroyObject()
	freeMemory()
}

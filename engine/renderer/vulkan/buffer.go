package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

type VulkanBuffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   uint64
}

// frame graph buffers can be bound as any of these
var bufferUsage = vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit |
	vk.BufferUsageStorageBufferBit |
	vk.BufferUsageTransferSrcBit |
	vk.BufferUsageTransferDstBit)

func BufferCreate(context *VulkanContext, size uint64) (*VulkanBuffer, error) {
	bufferCreateInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       bufferUsage,
		SharingMode: vk.SharingModeExclusive,
	}

	var buffer vk.Buffer
	if res := vk.CreateBuffer(context.Device.LogicalDevice, &bufferCreateInfo, context.Allocator, &buffer); res != vk.Success {
		return nil, fmt.Errorf("failed to create buffer: %s", VulkanResultString(res, true))
	}

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(context.Device.LogicalDevice, buffer, &requirements)
	memory, err := context.allocateMemory(requirements)
	if err != nil {
		vk.DestroyBuffer(context.Device.LogicalDevice, buffer, context.Allocator)
		return nil, err
	}
	if res := vk.BindBufferMemory(context.Device.LogicalDevice, buffer, memory, 0); res != vk.Success {
		vk.DestroyBuffer(context.Device.LogicalDevice, buffer, context.Allocator)
		vk.FreeMemory(context.Device.LogicalDevice, memory, context.Allocator)
		return nil, fmt.Errorf("failed to bind buffer memory: %s", VulkanResultString(res, true))
	}

	return &VulkanBuffer{Handle: buffer, Memory: memory, Size: size}, nil
}

func (vb *VulkanBuffer) Destroy(context *VulkanContext) {
	releaseBound(
		func() {
			if vb.Handle != vk.NullBuffer {
				vk.DestroyBuffer(context.Device.LogicalDevice, vb.Handle, context.Allocator)
				vb.Handle = vk.NullBuffer
			}
		},
		func() {
			if vb.Memory != vk.NullDeviceMemory {
				vk.FreeMemory(context.Device.LogicalDevice, vb.Memory, context.Allocator)
				vb.Memory = vk.NullDeviceMemory
			}
		},
	)
}

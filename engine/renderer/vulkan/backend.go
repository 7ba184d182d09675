package vulkan

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

// VulkanBackend creates the physical images and buffers the frame graph binds
// to its resources. It needs no surface: frames are never presented from here.
type VulkanBackend struct {
	mutex   sync.Mutex
	context *VulkanContext
	live    map[interface{}]struct{}

	debug bool
}

func New(debug bool) *VulkanBackend {
	return &VulkanBackend{
		context: &VulkanContext{
			Allocator: nil,
			Device:    &VulkanDevice{GraphicsQueueIndex: -1},
		},
		live:  make(map[interface{}]struct{}),
		debug: debug,
	}
}

// Initialize loads the loader through procAddr, usually obtained from the
// windowing layer, then creates the instance and the device.
func (vb *VulkanBackend) Initialize(appName string, procAddr unsafe.Pointer) error {
	if procAddr == nil {
		return fmt.Errorf("GetInstanceProcAddress is nil")
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		core.LogError("failed to initialize vk: %s", err)
		return err
	}

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("FrameGraph"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	requiredExtensions := []string{}
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		createInfo.Flags |= 1
	}

	requiredLayers := []string{}
	if vb.debug {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
		requiredLayers = append(requiredLayers, "VK_LAYER_KHRONOS_validation")
		if err := checkLayers(requiredLayers); err != nil {
			return err
		}
		core.LogInfo("All required validation layers are present.")
	}

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)
	createInfo.EnabledLayerCount = uint32(len(requiredLayers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(requiredLayers)

	var instance vk.Instance
	if res := vk.CreateInstance(&createInfo, vb.context.Allocator, &instance); res != vk.Success {
		err := fmt.Errorf("failed in creating the Vulkan Instance with error `%s`", VulkanResultString(res, true))
		core.LogError("%s", err)
		return err
	}
	vb.context.Instance = instance
	if err := vk.InitInstance(instance); err != nil {
		core.LogError("%s", err)
		return err
	}
	core.LogInfo("Vulkan Instance created.")

	if vb.debug {
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if err := vk.Error(vk.CreateDebugReportCallback(instance, &debugCreateInfo, nil, &dbg)); err != nil {
			core.LogError("vk.CreateDebugReportCallback failed with %s", err)
			return err
		}
		vb.context.debugMessenger = dbg
		core.LogDebug("Vulkan debugger created.")
	}

	if err := DeviceCreate(vb.context); err != nil {
		core.LogError("Failed to create device: %s", err)
		return err
	}

	core.LogInfo("Vulkan backend initialized successfully.")
	return nil
}

// Shutdown releases every object still alive, then the device and instance.
func (vb *VulkanBackend) Shutdown() error {
	vb.mutex.Lock()
	defer vb.mutex.Unlock()

	if vb.context.Device.LogicalDevice == nil {
		return core.ErrNotInitialized
	}
	vk.DeviceWaitIdle(vb.context.Device.LogicalDevice)

	for obj := range vb.live {
		vb.destroy(obj)
	}
	vb.live = make(map[interface{}]struct{})

	DeviceDestroy(vb.context)

	if vb.context.debugMessenger != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(vb.context.Instance, vb.context.debugMessenger, vb.context.Allocator)
		vb.context.debugMessenger = vk.NullDebugReportCallback
	}

	core.LogDebug("Destroying Vulkan instance...")
	vk.DestroyInstance(vb.context.Instance, vb.context.Allocator)
	vb.context.Instance = nil
	return nil
}

func (vb *VulkanBackend) AllocateTexture(desc metadata.TextureDesc) (interface{}, error) {
	vb.mutex.Lock()
	defer vb.mutex.Unlock()

	if vb.context.Device.LogicalDevice == nil {
		return nil, core.ErrNotInitialized
	}
	image, err := ImageCreate(vb.context, desc)
	if err != nil {
		return nil, err
	}
	vb.live[image] = struct{}{}
	return image, nil
}

func (vb *VulkanBackend) AllocateBuffer(byteSize uint64) (interface{}, error) {
	vb.mutex.Lock()
	defer vb.mutex.Unlock()

	if vb.context.Device.LogicalDevice == nil {
		return nil, core.ErrNotInitialized
	}
	buffer, err := BufferCreate(vb.context, byteSize)
	if err != nil {
		return nil, err
	}
	vb.live[buffer] = struct{}{}
	return buffer, nil
}

func (vb *VulkanBackend) Release(internal interface{}) error {
	vb.mutex.Lock()
	defer vb.mutex.Unlock()

	if _, ok := vb.live[internal]; !ok {
		return fmt.Errorf("vulkan: %T was not allocated by this backend", internal)
	}
	delete(vb.live, internal)
	vb.destroy(internal)
	return nil
}

func (vb *VulkanBackend) destroy(obj interface{}) {
	switch o := obj.(type) {
	case *VulkanImage:
		o.Destroy(vb.context)
	case *VulkanBuffer:
		o.Destroy(vb.context)
	}
}

func checkLayers(required []string) error {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success {
		return fmt.Errorf("failed to enumerate layers: %s", VulkanResultString(res, true))
	}
	available := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, available); res != vk.Success {
		return fmt.Errorf("failed to enumerate layers: %s", VulkanResultString(res, true))
	}

	for _, name := range required {
		core.LogInfo("Searching for layer: %s...", name)
		found := false
		for j := range available {
			available[j].Deref()
			if name == vk.ToString(available[j].LayerName[:]) {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("required validation layer is missing: %s", name)
		}
	}
	return nil
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogDebug("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}

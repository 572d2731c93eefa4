// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

// Configuration defines a global engine configuration setting
type Configuration struct {
	Instance  InstanceConfiguration
	Swapchain SwapchainConfiguration
	Time      TimeConfiguration
	Reclaim   ReclaimConfiguration

	// LogLevel is parsed with logrus.ParseLevel by the executables.
	LogLevel string
}

// InstanceConfiguration is used to configure the Vulkan instance
type InstanceConfiguration struct {
	AppName string

	// Validation turns on VK_LAYER_KHRONOS_validation
	Validation bool

	// Extensions and Layers are requested in addition to the
	// ones the window system needs
	Extensions []string
	Layers     []string
}

// SwapchainConfiguration is used to configure presentation
type SwapchainConfiguration struct {
	Width  uint32
	Height uint32
}

// TimeConfiguration is used to configure time services
type TimeConfiguration struct {
	// FramesPerSecond caps frames per second that is put out
	// To unlimit, set to 0
	FramesPerSecond int

	// EventPollDelay is the window event poll interval in milliseconds
	EventPollDelay int
}

// ReclaimConfiguration controls deferred resource destruction
type ReclaimConfiguration struct {
	// FramesInFlight is how many frames a retired resource
	// has to survive before it is released
	FramesInFlight uint64
}

// DefaultConfiguration returns the settings used when nothing is overridden
func DefaultConfiguration() Configuration {
	return Configuration{
		Instance: InstanceConfiguration{
			AppName: "koru",
		},
		Swapchain: SwapchainConfiguration{
			Width:  1280,
			Height: 720,
		},
		Time: TimeConfiguration{
			FramesPerSecond: 60,
			EventPollDelay:  5,
		},
		Reclaim: ReclaimConfiguration{
			FramesInFlight: 2,
		},
		LogLevel: "info",
	}
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// DeviceHandle provides GPU device access from the host application.
//
// The host (a windowing shell, an offscreen harness, a test) implements
// DeviceHandle and passes it to the map renderer; the map renderer
// RECEIVES the device, it never creates one. This keeps GPU resources
// shared between the map and whatever else the host draws.
//
// DeviceHandle is an alias for gpucontext.DeviceProvider, giving the
// interface a package-local name while staying compatible with the
// gpucontext ecosystem.
type DeviceHandle = gpucontext.DeviceProvider

// NullDeviceHandle is a DeviceHandle with no device. It is used in
// tests and headless setups; pipelines are simply not created and all
// drawing degrades to hit testing over CPU-side state.
type NullDeviceHandle struct{}

// Device returns nil; there is no device.
func (NullDeviceHandle) Device() gpucontext.Device { return nil }

// Queue returns nil; there is no queue.
func (NullDeviceHandle) Queue() gpucontext.Queue { return nil }

// Adapter returns nil; there is no adapter.
func (NullDeviceHandle) Adapter() gpucontext.Adapter { return nil }

// AdapterInfo returns metadata marking the adapter type as unknown;
// there is no adapter.
func (NullDeviceHandle) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Type: gpucontext.AdapterTypeUnknown}
}

// SurfaceFormat returns the undefined format; there is no surface.
func (NullDeviceHandle) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatUndefined
}

var _ DeviceHandle = NullDeviceHandle{}

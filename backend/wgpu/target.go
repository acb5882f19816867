package wgpu

import (
	"fmt"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/mapgl"
	"github.com/gogpu/mapgl/render"
)

// targetFormat is the color format of the offscreen render target.
const targetFormat = gputypes.TextureFormatBGRA8Unorm

// gpuWait bounds fence waits on draw submission and readback.
const gpuWait = 5 * time.Second

// Target is an offscreen render surface. Point pipelines built by the
// same Factory draw into it, and layer-at-pixel queries read it back.
//
// The first draw after BeginFrame clears the target; later draws in the
// same frame load the previous contents, so layers composite in draw
// order.
type Target struct {
	device hal.Device
	queue  hal.Queue

	tex  hal.Texture
	view hal.TextureView

	width, height uint32
	cleared       bool
}

var _ render.SurfaceBinding = (*Target)(nil)

// NewTarget creates an offscreen render target of the given pixel size.
func NewTarget(device hal.Device, queue hal.Queue, width, height int) (*Target, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("wgpu: invalid target size %dx%d", width, height)
	}
	w, h := uint32(width), uint32(height) //nolint:gosec // dimensions always fit uint32

	size := hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1}
	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         "map_target",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        targetFormat,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("create target texture: %w", err)
	}

	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         "map_target_view",
		Format:        targetFormat,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		device.DestroyTexture(tex)
		return nil, fmt.Errorf("create target view: %w", err)
	}

	return &Target{
		device: device,
		queue:  queue,
		tex:    tex,
		view:   view,
		width:  w,
		height: h,
	}, nil
}

// Size returns the target dimensions in pixels.
func (t *Target) Size() (width, height int) {
	return int(t.width), int(t.height)
}

// TextureFormat returns the target's color format.
func (t *Target) TextureFormat() gputypes.TextureFormat {
	return targetFormat
}

// BeginFrame marks the start of a frame. The next draw clears the
// target instead of loading the previous frame's contents.
func (t *Target) BeginFrame() {
	t.cleared = false
}

// passLoadOp returns the load op for the next render pass and marks the
// target cleared.
func (t *Target) passLoadOp() gputypes.LoadOp {
	if t.cleared {
		return gputypes.LoadOpLoad
	}
	t.cleared = true
	return gputypes.LoadOpClear
}

// ReadPixels copies the target contents to the CPU. The returned slice
// is width*height*4 bytes of BGRA, top row first.
func (t *Target) ReadPixels() ([]byte, error) {
	encoder, err := t.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "target_readback_encoder",
	})
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("target_readback"); err != nil {
		return nil, fmt.Errorf("begin encoding: %w", err)
	}

	// The target sits in render-attachment layout after the last pass;
	// the copy needs it in transfer-src.
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})

	pixelBufSize := uint64(t.width) * uint64(t.height) * 4
	stagingBuf, err := t.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "target_staging",
		Size:  pixelBufSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		encoder.DiscardEncoding()
		return nil, fmt.Errorf("create staging buffer: %w", err)
	}
	defer t.device.DestroyBuffer(stagingBuf)

	encoder.CopyTextureToBuffer(t.tex, stagingBuf, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: t.width * 4, RowsPerImage: t.height},
		TextureBase:  hal.ImageCopyTexture{Texture: t.tex, MipLevel: 0},
		Size:         hal.Extent3D{Width: t.width, Height: t.height, DepthOrArrayLayers: 1},
	}})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("end encoding: %w", err)
	}
	defer t.device.FreeCommandBuffer(cmdBuf)

	fence, err := t.device.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("create fence: %w", err)
	}
	defer t.device.DestroyFence(fence)

	if err := t.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}
	fenceOK, err := t.device.Wait(fence, 1, gpuWait)
	if err != nil || !fenceOK {
		return nil, fmt.Errorf("wait for GPU: ok=%v err=%w", fenceOK, err)
	}

	readback := make([]byte, pixelBufSize)
	if err := t.queue.ReadBuffer(stagingBuf, 0, readback); err != nil {
		return nil, fmt.Errorf("readback: %w", err)
	}
	return readback, nil
}

// ForEachLayerAtPixel reads back the pixel and, when it holds rendered
// content (non-zero alpha), visits the frame's layers topmost first.
// It returns the first non-nil callback result.
func (t *Target) ForEachLayerAtPixel(px mapgl.Pixel, fs *mapgl.FrameState, cb render.LayerCallback, filter render.LayerFilter) any {
	x, y := int(px.X), int(px.Y)
	if x < 0 || y < 0 || x >= int(t.width) || y >= int(t.height) {
		return nil
	}

	data, err := t.ReadPixels()
	if err != nil {
		mapgl.Logger().Warn("layer-at-pixel readback failed", "error", err)
		return nil
	}
	alpha := data[(y*int(t.width)+x)*4+3]
	if alpha == 0 {
		return nil
	}

	for i := len(fs.LayerStates) - 1; i >= 0; i-- {
		ls := &fs.LayerStates[i]
		if !ls.VisibleAtResolution(fs.ViewState.Resolution) {
			continue
		}
		if filter != nil && !filter(ls.Layer) {
			continue
		}
		if result := cb(ls.Layer); result != nil {
			return result
		}
	}
	return nil
}

// Destroy releases the target's GPU resources. Safe to call more than
// once.
func (t *Target) Destroy() {
	if t.view != nil {
		t.device.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.tex != nil {
		t.device.DestroyTexture(t.tex)
		t.tex = nil
	}
}

package wgpu

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/draw"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/mapgl/render"
	"github.com/gogpu/mapgl/style"
)

// Factory builds point pipelines that draw into a shared Target.
// It implements render.PipelineFactory.
type Factory struct {
	device hal.Device
	queue  hal.Queue
	target *Target
}

var _ render.PipelineFactory = (*Factory)(nil)

// NewFactory creates a pipeline factory for the given device, queue and
// render target.
func NewFactory(device hal.Device, queue hal.Queue, target *Target) *Factory {
	return &Factory{device: device, queue: queue, target: target}
}

// Target returns the factory's shared render target.
func (f *Factory) Target() *Target {
	return f.target
}

// NewPointsPipeline builds the GPU pipeline for a compiled style: both
// generated shader stages through naga, the vertex layout and uniform
// blocks from the style's schemas, and a render pipeline with
// premultiplied alpha blending against the target format.
func (f *Factory) NewPointsPipeline(cs *style.CompiledStyle) (render.PointsPipeline, error) {
	p := &pointsPipeline{
		device: f.device,
		queue:  f.queue,
		target: f.target,
		style:  cs,
	}
	if err := p.create(cs); err != nil {
		p.Destroy()
		return nil, err
	}
	return p, nil
}

// pointsPipeline draws one layer's point quads. One instance per
// compiled style; the points renderer feeds it vertices and uniform
// blocks each frame.
type pointsPipeline struct {
	device hal.Device
	queue  hal.Queue
	target *Target
	style  *style.CompiledStyle

	vertShader hal.ShaderModule
	fragShader hal.ShaderModule

	uniformLayout hal.BindGroupLayout
	iconLayout    hal.BindGroupLayout
	pipeLayout    hal.PipelineLayout
	pipeline      hal.RenderPipeline

	frameBuf hal.Buffer
	styleBuf hal.Buffer
	bindGrp  hal.BindGroup

	sampler  hal.Sampler
	iconTex  hal.Texture
	iconView hal.TextureView
	iconGrp  hal.BindGroup

	vertexBuf   hal.Buffer
	vertexCap   uint64
	vertexCount uint32

	destroyed bool
}

func (p *pointsPipeline) create(cs *style.CompiledStyle) error {
	vert, err := compileShader(p.device, "points_vert", cs.VertexSource)
	if err != nil {
		return err
	}
	p.vertShader = vert

	frag, err := compileShader(p.device, "points_frag", cs.FragmentSource)
	if err != nil {
		return err
	}
	p.fragShader = frag

	if err := p.createLayouts(cs); err != nil {
		return err
	}
	if err := p.createUniformBuffers(cs); err != nil {
		return err
	}

	premulBlend := gputypes.BlendStatePremultiplied()
	pipeline, err := p.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "points_pipeline",
		Layout: p.pipeLayout,
		Vertex: hal.VertexState{
			Module:     p.vertShader,
			EntryPoint: "vs_main",
			Buffers:    []gputypes.VertexBufferLayout{cs.VertexLayout()},
		},
		Fragment: &hal.FragmentState{
			Module:     p.fragShader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    p.target.TextureFormat(),
					Blend:     &premulBlend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("create points pipeline: %w", err)
	}
	p.pipeline = pipeline
	return nil
}

// createLayouts builds bind group layouts and the pipeline layout.
// Group 0 holds the frame uniforms and, when the style has uniform
// fields, the style uniform block. Group 1 holds the icon texture and
// sampler for image symbols.
func (p *pointsPipeline) createLayouts(cs *style.CompiledStyle) error {
	entries := []gputypes.BindGroupLayoutEntry{
		{
			Binding:    0,
			Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
		},
	}
	if cs.UniformBlockSize() > 0 {
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    1,
			Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
		})
	}
	uniformLayout, err := p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   "points_uniform_layout",
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("create uniform layout: %w", err)
	}
	p.uniformLayout = uniformLayout

	layouts := []hal.BindGroupLayout{p.uniformLayout}

	if cs.Symbol == style.SymbolImage {
		iconLayout, err := p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
			Label: "points_icon_layout",
			Entries: []gputypes.BindGroupLayoutEntry{
				{
					Binding:    0,
					Visibility: gputypes.ShaderStageFragment,
					Texture: &gputypes.TextureBindingLayout{
						SampleType:    gputypes.TextureSampleTypeFloat,
						ViewDimension: gputypes.TextureViewDimension2D,
					},
				},
				{
					Binding:    1,
					Visibility: gputypes.ShaderStageFragment,
					Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
				},
			},
		})
		if err != nil {
			return fmt.Errorf("create icon layout: %w", err)
		}
		p.iconLayout = iconLayout
		layouts = append(layouts, p.iconLayout)

		sampler, err := p.device.CreateSampler(&hal.SamplerDescriptor{
			Label:        "points_icon_sampler",
			AddressModeU: gputypes.AddressModeClampToEdge,
			AddressModeV: gputypes.AddressModeClampToEdge,
			AddressModeW: gputypes.AddressModeClampToEdge,
			MagFilter:    gputypes.FilterModeLinear,
			MinFilter:    gputypes.FilterModeLinear,
			MipmapFilter: gputypes.FilterModeLinear,
		})
		if err != nil {
			return fmt.Errorf("create icon sampler: %w", err)
		}
		p.sampler = sampler
	}

	pipeLayout, err := p.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "points_pipe_layout",
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	p.pipeLayout = pipeLayout
	return nil
}

// createUniformBuffers allocates the persistent frame and style uniform
// buffers and the group-0 bind group over them.
func (p *pointsPipeline) createUniformBuffers(cs *style.CompiledStyle) error {
	const frameSize = uint64(12 * 4) // style.FrameUniformValues layout
	frameBuf, err := p.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "points_frame_uniforms",
		Size:  frameSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create frame uniform buffer: %w", err)
	}
	p.frameBuf = frameBuf

	entries := []gputypes.BindGroupEntry{
		{Binding: 0, Resource: gputypes.BufferBinding{
			Buffer: p.frameBuf.NativeHandle(), Offset: 0, Size: frameSize,
		}},
	}

	if blockSize := cs.UniformBlockSize(); blockSize > 0 {
		styleBuf, err := p.device.CreateBuffer(&hal.BufferDescriptor{
			Label: "points_style_uniforms",
			Size:  uint64(blockSize),
			Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("create style uniform buffer: %w", err)
		}
		p.styleBuf = styleBuf
		entries = append(entries, gputypes.BindGroupEntry{
			Binding: 1, Resource: gputypes.BufferBinding{
				Buffer: p.styleBuf.NativeHandle(), Offset: 0, Size: uint64(blockSize),
			},
		})
	}

	bindGrp, err := p.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   "points_uniform_bind",
		Layout:  p.uniformLayout,
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("create uniform bind group: %w", err)
	}
	p.bindGrp = bindGrp
	return nil
}

// UploadVertices replaces the vertex buffer contents, growing the
// buffer when the stream no longer fits.
func (p *pointsPipeline) UploadVertices(data []float32, vertexCount int) error {
	if p.destroyed {
		return nil
	}
	p.vertexCount = uint32(vertexCount) //nolint:gosec // vertex count fits uint32
	if len(data) == 0 {
		return nil
	}

	bytes := floatBytes(data)
	size := uint64(len(bytes))
	if p.vertexBuf == nil || size > p.vertexCap {
		if p.vertexBuf != nil {
			p.device.DestroyBuffer(p.vertexBuf)
			p.vertexBuf = nil
		}
		buf, err := p.device.CreateBuffer(&hal.BufferDescriptor{
			Label: "points_vertices",
			Size:  size,
			Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("create vertex buffer: %w", err)
		}
		p.vertexBuf = buf
		p.vertexCap = size
	}
	p.queue.WriteBuffer(p.vertexBuf, 0, bytes)
	return nil
}

// SetFrameUniforms updates the per-frame uniform block.
func (p *pointsPipeline) SetFrameUniforms(values []float32) error {
	if p.destroyed || p.frameBuf == nil {
		return nil
	}
	p.queue.WriteBuffer(p.frameBuf, 0, floatBytes(values))
	return nil
}

// SetStyleUniforms updates the style uniform block. A no-op for fully
// data-driven styles with no uniform fields.
func (p *pointsPipeline) SetStyleUniforms(values []float32) error {
	if p.destroyed || p.styleBuf == nil {
		return nil
	}
	p.queue.WriteBuffer(p.styleBuf, 0, floatBytes(values))
	return nil
}

// SetIcon uploads the icon image and binds it as group 1. Replaces any
// previously bound icon.
func (p *pointsPipeline) SetIcon(img image.Image) error {
	if p.destroyed {
		return nil
	}
	if p.iconLayout == nil {
		return fmt.Errorf("pipeline style %q has no icon binding", p.style.Symbol)
	}

	rgba := imageRGBA(img)
	w := uint32(rgba.Rect.Dx()) //nolint:gosec // icon dimensions fit uint32
	h := uint32(rgba.Rect.Dy()) //nolint:gosec // icon dimensions fit uint32

	p.destroyIcon()

	tex, err := p.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "points_icon",
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create icon texture: %w", err)
	}
	p.iconTex = tex

	view, err := p.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         "points_icon_view",
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		p.destroyIcon()
		return fmt.Errorf("create icon view: %w", err)
	}
	p.iconView = view

	p.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: tex, MipLevel: 0},
		rgba.Pix,
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: w * 4, RowsPerImage: h},
		&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)

	grp, err := p.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "points_icon_bind",
		Layout: p.iconLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.TextureViewBinding{
				TextureView: p.iconView.NativeHandle(),
			}},
			{Binding: 1, Resource: gputypes.SamplerBinding{
				Sampler: p.sampler.NativeHandle(),
			}},
		},
	})
	if err != nil {
		p.destroyIcon()
		return fmt.Errorf("create icon bind group: %w", err)
	}
	p.iconGrp = grp
	return nil
}

// Draw encodes one render pass over the uploaded vertices into the
// shared target, submits it and waits for completion.
func (p *pointsPipeline) Draw() error {
	if p.destroyed || p.vertexCount == 0 || p.vertexBuf == nil {
		return nil
	}
	if p.iconLayout != nil && p.iconGrp == nil {
		// Image symbol with no icon uploaded yet; nothing to draw.
		return nil
	}

	encoder, err := p.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "points_encoder",
	})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("points_draw"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "points_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{
			{
				View:       p.target.view,
				LoadOp:     p.target.passLoadOp(),
				StoreOp:    gputypes.StoreOpStore,
				ClearValue: gputypes.Color{R: 0, G: 0, B: 0, A: 0},
			},
		},
	})
	rp.SetPipeline(p.pipeline)
	rp.SetBindGroup(0, p.bindGrp, nil)
	if p.iconGrp != nil {
		rp.SetBindGroup(1, p.iconGrp, nil)
	}
	rp.SetVertexBuffer(0, p.vertexBuf, 0)
	rp.Draw(p.vertexCount, 1, 0, 0)
	rp.End()

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer p.device.FreeCommandBuffer(cmdBuf)

	fence, err := p.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	defer p.device.DestroyFence(fence)

	if err := p.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	fenceOK, err := p.device.Wait(fence, 1, gpuWait)
	if err != nil || !fenceOK {
		return fmt.Errorf("wait for GPU: ok=%v err=%w", fenceOK, err)
	}
	return nil
}

// Destroy releases all pipeline resources in reverse creation order.
// Safe to call more than once.
func (p *pointsPipeline) Destroy() {
	if p.destroyed {
		return
	}
	p.destroyed = true

	p.destroyIcon()
	if p.vertexBuf != nil {
		p.device.DestroyBuffer(p.vertexBuf)
		p.vertexBuf = nil
	}
	if p.bindGrp != nil {
		p.device.DestroyBindGroup(p.bindGrp)
		p.bindGrp = nil
	}
	if p.styleBuf != nil {
		p.device.DestroyBuffer(p.styleBuf)
		p.styleBuf = nil
	}
	if p.frameBuf != nil {
		p.device.DestroyBuffer(p.frameBuf)
		p.frameBuf = nil
	}
	if p.pipeline != nil {
		p.device.DestroyRenderPipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.sampler != nil {
		p.device.DestroySampler(p.sampler)
		p.sampler = nil
	}
	if p.pipeLayout != nil {
		p.device.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.iconLayout != nil {
		p.device.DestroyBindGroupLayout(p.iconLayout)
		p.iconLayout = nil
	}
	if p.uniformLayout != nil {
		p.device.DestroyBindGroupLayout(p.uniformLayout)
		p.uniformLayout = nil
	}
	if p.fragShader != nil {
		p.device.DestroyShaderModule(p.fragShader)
		p.fragShader = nil
	}
	if p.vertShader != nil {
		p.device.DestroyShaderModule(p.vertShader)
		p.vertShader = nil
	}
}

func (p *pointsPipeline) destroyIcon() {
	if p.iconGrp != nil {
		p.device.DestroyBindGroup(p.iconGrp)
		p.iconGrp = nil
	}
	if p.iconView != nil {
		p.device.DestroyTextureView(p.iconView)
		p.iconView = nil
	}
	if p.iconTex != nil {
		p.device.DestroyTexture(p.iconTex)
		p.iconTex = nil
	}
}

// floatBytes converts a float32 slice to its little-endian byte
// representation for buffer uploads.
func floatBytes(values []float32) []byte {
	buf := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// imageRGBA returns img as a zero-origin *image.RGBA, converting when
// needed.
func imageRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}

package renderer

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/bodardr/reflections/engine/camera"
)

// mipBlitShaderSource downsamples one mip level into the next using a
// fullscreen triangle and a linear sampler.
const mipBlitShaderSource = `
struct BlitOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) uv: vec2<f32>,
};

@vertex
fn vs_main(@builtin(vertex_index) index: u32) -> BlitOutput {
    var out: BlitOutput;
    let uv = vec2<f32>(f32((index << 1u) & 2u), f32(index & 2u));
    out.position = vec4<f32>(uv * 2.0 - 1.0, 0.0, 1.0);
    out.uv = vec2<f32>(uv.x, 1.0 - uv.y);
    return out;
}

@group(0) @binding(0) var mipSource: texture_2d<f32>;
@group(0) @binding(1) var mipSampler: sampler;

@fragment
fn fs_main(in: BlitOutput) -> @location(0) vec4<f32> {
    return textureSample(mipSource, mipSampler, in.uv);
}
`

// readbackRowAlignment is the WebGPU-required alignment for BytesPerRow in
// texture-to-buffer copies.
const readbackRowAlignment = 256

// targetBytesPerPixel is the pixel stride of TextureFormatRGBA16Float.
const targetBytesPerPixel = 8

type wgpuRendererBackendImpl struct {
	mu *sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpu.Surface

	surfaceFormat    *wgpu.TextureFormat
	presentMode      wgpu.PresentMode
	depthTextureView *wgpu.TextureView

	surfaceRenderPassDescriptor *wgpu.RenderPassDescriptor

	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView

	mipPipeline *wgpu.RenderPipeline
	mipLayout   *wgpu.BindGroupLayout
	mipSampler  *wgpu.Sampler
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool) (*wgpuRendererBackendImpl, error) {
	runtime.LockOSThread()
	b := &wgpuRendererBackendImpl{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeImmediate,
	}
	b.surface = b.instance.CreateSurface(surfaceDescriptor)

	adapter, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to request adapter: %w", err)
	}
	b.adapter = adapter

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to request device: %w", err)
	}
	b.device = device
	b.queue = device.GetQueue()

	return b, nil
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = &capabilities.Formats[0]

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      *b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})

	depthTexture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Surface Depth Texture",
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth24Plus,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		panic(err)
	}
	b.depthTextureView, err = depthTexture.CreateView(nil)
	if err != nil {
		panic(err)
	}

	// Cached descriptor for the main surface pass. The color attachment View
	// is set per-frame to the acquired swapchain view.
	b.surfaceRenderPassDescriptor = &wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    nil,
				LoadOp:  wgpu.LoadOpClear,
				StoreOp: wgpu.StoreOpStore,
				ClearValue: wgpu.Color{
					R: 0.1, G: 0.1, B: 0.1, A: 1.0,
				},
			},
		},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            b.depthTextureView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1.0,
		},
	}
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeVSync:
		b.presentMode = wgpu.PresentModeFifo
	case PresentModeUncapped:
		fallthrough
	default:
		b.presentMode = wgpu.PresentModeImmediate
	}
}

func (b *wgpuRendererBackendImpl) CreateColorTarget(width, height int) (*ColorTarget, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("failed to create color target: invalid size %dx%d", width, height)
	}

	mipCount := mipLevelCountFor(width, height)

	texture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Color Target Texture",
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: uint32(mipCount),
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatRGBA16Float,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create color target texture: %w", err)
	}

	target := &ColorTarget{
		Width:         width,
		Height:        height,
		MipLevelCount: mipCount,
		Texture:       texture,
	}

	target.View, err = texture.CreateView(&wgpu.TextureViewDescriptor{
		Label:           "Color Target View",
		Format:          wgpu.TextureFormatRGBA16Float,
		Dimension:       wgpu.TextureViewDimension2D,
		BaseMipLevel:    0,
		MipLevelCount:   uint32(mipCount),
		BaseArrayLayer:  0,
		ArrayLayerCount: 1,
		Aspect:          wgpu.TextureAspectAll,
	})
	if err != nil {
		target.Release()
		return nil, fmt.Errorf("failed to create color target view: %w", err)
	}

	target.MipViews = make([]*wgpu.TextureView, mipCount)
	for level := 0; level < mipCount; level++ {
		target.MipViews[level], err = texture.CreateView(&wgpu.TextureViewDescriptor{
			Label:           fmt.Sprintf("Color Target Mip %d View", level),
			Format:          wgpu.TextureFormatRGBA16Float,
			Dimension:       wgpu.TextureViewDimension2D,
			BaseMipLevel:    uint32(level),
			MipLevelCount:   1,
			BaseArrayLayer:  0,
			ArrayLayerCount: 1,
			Aspect:          wgpu.TextureAspectAll,
		})
		if err != nil {
			target.Release()
			return nil, fmt.Errorf("failed to create mip %d view: %w", level, err)
		}
	}
	target.RenderView = target.MipViews[0]

	target.DepthTexture, err = b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Color Target Depth Texture",
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth32Float,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		target.Release()
		return nil, fmt.Errorf("failed to create color target depth texture: %w", err)
	}
	target.DepthView, err = target.DepthTexture.CreateView(nil)
	if err != nil {
		target.Release()
		return nil, fmt.Errorf("failed to create color target depth view: %w", err)
	}

	return target, nil
}

func (b *wgpuRendererBackendImpl) RenderToTarget(target *ColorTarget, cam camera.Camera, drawables []Drawable, state RenderState) error {
	passInfo := PassInfo{
		ColorFormat: wgpu.TextureFormatRGBA16Float,
		DepthFormat: wgpu.TextureFormatDepth32Float,
	}
	for _, d := range drawables {
		d.Prepare(cam, state, passInfo)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("failed to create command encoder: %w", err)
	}
	defer encoder.Release()

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    target.RenderView,
				LoadOp:  wgpu.LoadOpClear,
				StoreOp: wgpu.StoreOpStore,
				ClearValue: wgpu.Color{
					R: 0.0, G: 0.0, B: 0.0, A: 1.0,
				},
			},
		},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            target.DepthView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1.0,
		},
	})
	for _, d := range drawables {
		d.Encode(pass, state, passInfo)
	}
	pass.End()

	released, err := b.encodeMipChain(encoder, target)
	if err != nil {
		return err
	}
	defer released()

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("failed to finish command encoder: %w", err)
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()

	return nil
}

func (b *wgpuRendererBackendImpl) RenderToSurface(cam camera.Camera, drawables []Drawable, state RenderState) error {
	passInfo := PassInfo{
		DepthFormat: wgpu.TextureFormatDepth24Plus,
	}
	if b.surfaceFormat != nil {
		passInfo.ColorFormat = *b.surfaceFormat
	}
	for _, d := range drawables {
		d.Prepare(cam, state, passInfo)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// Acquire the swapchain image once per frame; subsequent cameras reuse it
	// with a load instead of a clear so earlier passes are preserved.
	loadOp := wgpu.LoadOpLoad
	if b.frameSurface == nil {
		surfaceTexture, err := b.surface.GetCurrentTexture()
		if err != nil {
			return fmt.Errorf("failed to acquire surface texture: %w", err)
		}
		view, err := surfaceTexture.CreateView(nil)
		if err != nil {
			surfaceTexture.Release()
			return fmt.Errorf("failed to create surface view: %w", err)
		}
		b.frameSurface = surfaceTexture
		b.frameView = view
		loadOp = wgpu.LoadOpClear
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("failed to create command encoder: %w", err)
	}
	defer encoder.Release()

	b.surfaceRenderPassDescriptor.ColorAttachments[0].View = b.frameView
	b.surfaceRenderPassDescriptor.ColorAttachments[0].LoadOp = loadOp
	pass := encoder.BeginRenderPass(b.surfaceRenderPassDescriptor)
	for _, d := range drawables {
		d.Encode(pass, state, passInfo)
	}
	pass.End()

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("failed to finish command encoder: %w", err)
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()

	return nil
}

func (b *wgpuRendererBackendImpl) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface == nil {
		return
	}

	b.surface.Present()

	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	b.frameSurface.Release()
	b.frameSurface = nil
}

func (b *wgpuRendererBackendImpl) ReadTargetPixels(target *ColorTarget) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rowBytes := target.Width * targetBytesPerPixel
	paddedRowBytes := (rowBytes + readbackRowAlignment - 1) / readbackRowAlignment * readbackRowAlignment
	bufferSize := uint64(paddedRowBytes * target.Height)

	readback, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Target Readback Buffer",
		Size:  bufferSize,
		Usage: wgpu.BufferUsageCopyDst | wgpu.BufferUsageMapRead,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readback buffer: %w", err)
	}
	defer readback.Release()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create command encoder: %w", err)
	}
	defer encoder.Release()

	encoder.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{
			Texture:  target.Texture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		&wgpu.ImageCopyBuffer{
			Buffer: readback,
			Layout: wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  uint32(paddedRowBytes),
				RowsPerImage: uint32(target.Height),
			},
		},
		&wgpu.Extent3D{
			Width:              uint32(target.Width),
			Height:             uint32(target.Height),
			DepthOrArrayLayers: 1,
		},
	)

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to finish command encoder: %w", err)
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()

	var mapErr error
	done := false
	err = readback.MapAsync(wgpu.MapModeRead, 0, bufferSize, func(status wgpu.BufferMapAsyncStatus) {
		if status != wgpu.BufferMapAsyncStatusSuccess {
			mapErr = fmt.Errorf("failed to map readback buffer: status %d", status)
		}
		done = true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to map readback buffer: %w", err)
	}
	for !done {
		b.device.Poll(true, nil)
	}
	if mapErr != nil {
		return nil, mapErr
	}
	defer readback.Unmap()

	mapped := readback.GetMappedRange(0, uint(bufferSize))

	// Strip row padding so callers see tightly packed pixels.
	pixels := make([]byte, rowBytes*target.Height)
	for row := 0; row < target.Height; row++ {
		copy(pixels[row*rowBytes:(row+1)*rowBytes], mapped[row*paddedRowBytes:row*paddedRowBytes+rowBytes])
	}
	return pixels, nil
}

func (b *wgpuRendererBackendImpl) Device() *wgpu.Device {
	return b.device
}

func (b *wgpuRendererBackendImpl) Queue() *wgpu.Queue {
	return b.queue
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	if b.frameSurface != nil {
		b.frameSurface.Release()
		b.frameSurface = nil
	}
	if b.mipSampler != nil {
		b.mipSampler.Release()
		b.mipSampler = nil
	}
	if b.mipPipeline != nil {
		b.mipPipeline.Release()
		b.mipPipeline = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
}

// encodeMipChain records one downsampling pass per mip level, each sampling
// the level above it. The returned func releases the per-level bind groups and
// must be called after the encoder is submitted.
func (b *wgpuRendererBackendImpl) encodeMipChain(encoder *wgpu.CommandEncoder, target *ColorTarget) (func(), error) {
	if target.MipLevelCount <= 1 {
		return func() {}, nil
	}
	if err := b.ensureMipPipeline(); err != nil {
		return nil, err
	}

	bindGroups := make([]*wgpu.BindGroup, 0, target.MipLevelCount-1)
	for level := 1; level < target.MipLevelCount; level++ {
		bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  "Mip Blit Bind Group",
			Layout: b.mipLayout,
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, TextureView: target.MipViews[level-1]},
				{Binding: 1, Sampler: b.mipSampler},
			},
		})
		if err != nil {
			for _, bg := range bindGroups {
				bg.Release()
			}
			return nil, fmt.Errorf("failed to create mip bind group: %w", err)
		}
		bindGroups = append(bindGroups, bindGroup)

		pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
			ColorAttachments: []wgpu.RenderPassColorAttachment{
				{
					View:    target.MipViews[level],
					LoadOp:  wgpu.LoadOpClear,
					StoreOp: wgpu.StoreOpStore,
				},
			},
		})
		pass.SetPipeline(b.mipPipeline)
		pass.SetBindGroup(0, bindGroup, nil)
		pass.Draw(3, 1, 0, 0)
		pass.End()
	}

	return func() {
		for _, bg := range bindGroups {
			bg.Release()
		}
	}, nil
}

func (b *wgpuRendererBackendImpl) ensureMipPipeline() error {
	if b.mipPipeline != nil {
		return nil
	}

	shaderModule, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: "Mip Blit Shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: mipBlitShaderSource,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create mip blit shader: %w", err)
	}
	defer shaderModule.Release()

	b.mipLayout, err = b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Mip Blit Bind Group Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Sampler: wgpu.SamplerBindingLayout{
					Type: wgpu.SamplerBindingTypeFiltering,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create mip blit bind group layout: %w", err)
	}

	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "Mip Blit Pipeline Layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{b.mipLayout},
	})
	if err != nil {
		return fmt.Errorf("failed to create mip blit pipeline layout: %w", err)
	}
	defer pipelineLayout.Release()

	b.mipPipeline, err = b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "Mip Blit Render Pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     shaderModule,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     shaderModule,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{
					Format:    wgpu.TextureFormatRGBA16Float,
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create mip blit pipeline: %w", err)
	}

	b.mipSampler, err = b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Mip Blit Sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return fmt.Errorf("failed to create mip blit sampler: %w", err)
	}

	return nil
}

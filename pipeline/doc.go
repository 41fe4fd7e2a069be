// Package pipeline creates compute, graphic and ray-trace pipelines and
// reflects their descriptor layouts from WGSL.
//
// Reflection runs the shader through naga (parse, then lower to IR) and reads
// every global with a @group/@binding attribute:
//
//	var<uniform>             -> BindingUniformBuffer
//	var<storage, read>       -> BindingReadOnlyStorageBuffer
//	var<storage, read_write> -> BindingStorageBuffer
//	texture_2d<f32>          -> BindingSampledImage
//	texture_depth_2d         -> BindingDepthImage
//	texture_storage_2d<...>  -> BindingStorageImage
//	sampler                  -> BindingSampler
//
// The render graph validates descriptor slots named by a pass against this
// layout when the pass is declared, and derives the access type of each
// descriptor from its binding kind.
package pipeline

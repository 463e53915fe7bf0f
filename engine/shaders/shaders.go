// Package shaders embeds the WGSL compute shader that mirrors
// engine/cull.Visible on the GPU (spec §4.7). Grounded on
// voxelrt/rt/shaders.shaders.go's go:embed-per-string pattern.
package shaders

import _ "embed"

//go:embed cull.wgsl
var CullWGSL string

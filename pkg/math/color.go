package math

// Color3 is an RGB color with float channels.
type Color3 struct {
	R, G, B float32
}

// Color4 is an RGBA color with float channels.
type Color4 struct {
	R, G, B, A float32
}

// Texel is one uncompressed texture pixel. Channels are declared in
// native memory order: blue, green, red, alpha.
type Texel struct {
	B, G, R, A uint8
}

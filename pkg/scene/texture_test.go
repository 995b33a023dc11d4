package scene

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/assetbridge/pkg/math"
	"github.com/Faultbox/assetbridge/pkg/native"
)

func encodePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.SetNRGBA(1, 0, color.NRGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDetectFormatHint(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"png", encodePNG(t), "png"},
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0x10, 'J', 'F', 'I', 'F', 0}, "jpg"},
		{"unknown", []byte("plain text"), ""},
		{"empty", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectFormatHint(tt.data))
		})
	}
}

func TestNewCompressedTexture(t *testing.T) {
	tex := NewCompressedTexture(encodePNG(t), "")
	assert.True(t, tex.IsCompressed())
	assert.Equal(t, "png", tex.FormatHint)

	tex = NewCompressedTexture([]byte{1, 2, 3}, "dds")
	assert.Equal(t, "dds", tex.FormatHint, "explicit hint wins")

	_, err := tex.ToImage()
	assert.Error(t, err)
}

func TestTexelImageConversion(t *testing.T) {
	tex := NewUncompressedTexture(2, 1, []math.Texel{
		{B: 1, G: 2, R: 3, A: 4},
		{B: 5, G: 6, R: 7, A: 8},
	})
	img, err := tex.ToImage()
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 7, G: 6, B: 5, A: 8}, img.NRGBAAt(1, 0))

	var back EmbeddedTexture
	back.FromImage(img)
	assert.Equal(t, tex.Texels, back.Texels)
	assert.Equal(t, 2, back.Width)
	assert.Equal(t, 1, back.Height)

	tex.Width = 3
	_, err = tex.ToImage()
	assert.Error(t, err)
}

func TestTextureNativeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		tex  *EmbeddedTexture
	}{
		{"compressed", &EmbeddedTexture{Filename: "albedo.png", FormatHint: "png", CompressedData: encodePNG(t)}},
		{"texels", &EmbeddedTexture{Filename: "lut", FormatHint: "rgba8888", Width: 1, Height: 2, Texels: []math.Texel{{R: 1, A: 255}, {G: 1, A: 255}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, tc := newTestTranscoder(t)
			p, err := ToNative(tc, tt.tex)
			require.NoError(t, err)

			got, err := FromNative[EmbeddedTexture](tc, p)
			require.NoError(t, err)
			assert.Equal(t, tt.tex, got)

			require.NoError(t, FreeNative[EmbeddedTexture](tc, p, true))
			requireNoLeaks(t, h)
		})
	}
}

func TestTextureEncodeErrors(t *testing.T) {
	tests := []struct {
		name string
		tex  *EmbeddedTexture
		want error
	}{
		{"hint too long", &EmbeddedTexture{FormatHint: "verylonghint", CompressedData: []byte{1}}, native.ErrStringTooLong},
		{"texel count", &EmbeddedTexture{Width: 2, Height: 2, Texels: make([]math.Texel, 3)}, native.ErrInvalidScene},
		{"no data", &EmbeddedTexture{Filename: "empty"}, native.ErrInvalidScene},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, tc := newTestTranscoder(t)
			_, err := ToNative(tc, tt.tex)
			assert.ErrorIs(t, err, tt.want)
			requireNoLeaks(t, h)
		})
	}
}

func TestDecompress(t *testing.T) {
	tex := NewCompressedTexture(encodePNG(t), "")
	tex.Filename = "mask.png"

	raw, err := tex.Decompress()
	require.NoError(t, err)
	assert.False(t, raw.IsCompressed())
	assert.Equal(t, "mask.png", raw.Filename)
	assert.Equal(t, 2, raw.Width)
	require.Len(t, raw.Texels, 4)
	assert.Equal(t, math.Texel{R: 255, A: 255}, raw.Texels[1])
	assert.Equal(t, math.Texel{}, raw.Texels[0])

	_, err = raw.Decompress()
	assert.Error(t, err, "already raw")
	_, err = NewCompressedTexture([]byte("not an image"), "png").Decompress()
	assert.Error(t, err)
}

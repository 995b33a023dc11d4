package scene

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/Faultbox/assetbridge/pkg/math"
	"github.com/Faultbox/assetbridge/pkg/native"
)

// MaxFormatHintLength is the longest format hint the native struct holds.
const MaxFormatHintLength = formatHintSize - 1

// EmbeddedTexture is a texture stored inside the scene, either as a
// compressed file image (png, jpg, ...) or as raw BGRA texels.
type EmbeddedTexture struct {
	Filename string
	// FormatHint is the lowercase file extension of compressed data, or a
	// channel layout such as "rgba8888" for raw texels.
	FormatHint     string
	CompressedData []byte
	Width, Height  int
	Texels         []math.Texel
}

// NewCompressedTexture wraps encoded image bytes. An empty hint is filled
// in by sniffing the data.
func NewCompressedTexture(data []byte, hint string) *EmbeddedTexture {
	if hint == "" {
		hint = DetectFormatHint(data)
	}
	return &EmbeddedTexture{CompressedData: data, FormatHint: hint}
}

// NewUncompressedTexture wraps width*height texels in row-major order.
func NewUncompressedTexture(width, height int, texels []math.Texel) *EmbeddedTexture {
	return &EmbeddedTexture{Width: width, Height: height, Texels: texels}
}

// IsCompressed reports whether the texture holds a file image.
func (t *EmbeddedTexture) IsCompressed() bool {
	return len(t.CompressedData) > 0
}

// DetectFormatHint sniffs the file type of compressed texture bytes and
// returns its extension, or "" when unknown.
func DetectFormatHint(data []byte) string {
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return ""
	}
	ext := strings.ToLower(kind.Extension)
	if len(ext) > MaxFormatHintLength {
		return ""
	}
	return ext
}

// ToImage converts raw texels to an image. Compressed textures are not
// decoded here; callers hand CompressedData to an image codec.
func (t *EmbeddedTexture) ToImage() (*image.NRGBA, error) {
	if t.IsCompressed() {
		return nil, fmt.Errorf("texture %q is compressed (%s)", t.Filename, t.FormatHint)
	}
	if len(t.Texels) != t.Width*t.Height {
		return nil, fmt.Errorf("texture %q: %d texels for %dx%d", t.Filename, len(t.Texels), t.Width, t.Height)
	}
	img := image.NewNRGBA(image.Rect(0, 0, t.Width, t.Height))
	for i, px := range t.Texels {
		img.SetNRGBA(i%t.Width, i/t.Width, color.NRGBA{R: px.R, G: px.G, B: px.B, A: px.A})
	}
	return img, nil
}

// Decompress decodes compressed data (png, jpeg, gif, bmp, tiff or webp)
// into a texture of raw texels with the same filename.
func (t *EmbeddedTexture) Decompress() (*EmbeddedTexture, error) {
	if !t.IsCompressed() {
		return nil, fmt.Errorf("texture %q is not compressed", t.Filename)
	}
	img, _, err := image.Decode(bytes.NewReader(t.CompressedData))
	if err != nil {
		return nil, fmt.Errorf("texture %q (%s): %w", t.Filename, t.FormatHint, err)
	}
	out := &EmbeddedTexture{Filename: t.Filename, FormatHint: "rgba8888"}
	out.FromImage(img)
	return out, nil
}

// FromImage replaces the texture contents with the pixels of img.
func (t *EmbeddedTexture) FromImage(img image.Image) {
	r := img.Bounds()
	t.CompressedData = nil
	t.Width, t.Height = r.Dx(), r.Dy()
	t.Texels = make([]math.Texel, 0, t.Width*t.Height)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			t.Texels = append(t.Texels, math.Texel{B: c.B, G: c.G, R: c.R, A: c.A})
		}
	}
}

func (t *EmbeddedTexture) nativeLayout() *native.Layout { return textureL.layout }

func (t *EmbeddedTexture) toNative(tc *Transcoder, _ native.Ptr, b []byte) error {
	f := textureL
	if len(t.FormatHint) > MaxFormatHintLength {
		return native.Errorf(native.PhaseEncode, native.ErrStringTooLong, "format hint %q exceeds %d bytes", t.FormatHint, MaxFormatHintLength)
	}
	copy(b[f.formatHint:f.formatHint+formatHintSize], t.FormatHint)
	if err := tc.putString(b, f.filename, t.Filename); err != nil {
		return native.AtPath(err, "filename")
	}
	if t.IsCompressed() {
		p, err := tc.heap.AllocBytes(t.CompressedData)
		if err != nil {
			return err
		}
		putPtr(b, f.data, p)
		putU32(b, f.width, uint32(len(t.CompressedData)))
		return nil
	}
	if t.Width < 0 || t.Height < 0 || len(t.Texels) != t.Width*t.Height {
		return native.Errorf(native.PhaseEncode, native.ErrInvalidScene, "%d texels for %dx%d", len(t.Texels), t.Width, t.Height)
	}
	if len(t.Texels) == 0 {
		return native.Errorf(native.PhaseEncode, native.ErrInvalidScene, "texture %q has no data", t.Filename)
	}
	if err := writeValues(tc, b, f.data, native.Texel, t.Texels); err != nil {
		return err
	}
	putU32(b, f.width, uint32(t.Width))
	putU32(b, f.height, uint32(t.Height))
	return nil
}

func (t *EmbeddedTexture) fromNative(tc *Transcoder, b []byte) error {
	f := textureL
	*t = EmbeddedTexture{}
	name, err := tc.getString(b, f.filename)
	if err != nil {
		return native.AtPath(err, "filename")
	}
	hint := b[f.formatHint : f.formatHint+formatHintSize]
	if i := strings.IndexByte(string(hint), 0); i >= 0 {
		hint = hint[:i]
	}
	w, h := u32At(b, f.width), u32At(b, f.height)
	data := ptrAt(b, f.data)
	if h == 0 {
		if err := native.CheckPair(data, w); err != nil {
			return native.AtPath(err, name)
		}
		raw, err := tc.heap.Read(data, w)
		if err != nil {
			return native.AtPath(native.Corrupt("%v", err), name)
		}
		t.CompressedData = raw
	} else {
		count := uint64(w) * uint64(h)
		if count > uint64(^uint32(0)) {
			return native.AtPath(native.Corrupt("%dx%d texels overflow", w, h), name)
		}
		texels, err := native.ReadArray(tc.heap, native.Texel, data, uint32(count))
		if err != nil {
			return native.AtPath(err, name)
		}
		t.Width, t.Height, t.Texels = int(w), int(h), texels
	}
	t.Filename = name
	t.FormatHint = string(hint)
	return nil
}

func (t *EmbeddedTexture) freeNative(tc *Transcoder, b []byte) error {
	return freeAt(tc, b, textureL.data)
}

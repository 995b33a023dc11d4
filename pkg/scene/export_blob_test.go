package scene

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/assetbridge/pkg/native"
)

func sampleBlobs() *ExportDataBlob {
	return &ExportDataBlob{
		Name: "",
		Data: []byte{1, 2, 3, 4},
		Next: &ExportDataBlob{Name: "material.mtl", Data: []byte{9, 9, 9}},
	}
}

func TestExportBlobStreamLayout(t *testing.T) {
	var buf bytes.Buffer
	n, err := sampleBlobs().WriteTo(&buf)
	require.NoError(t, err)

	want := []byte{
		0x00,                   // name length
		0x04, 0x00, 0x00, 0x00, // data length
		1, 2, 3, 4,
		0x01, // has next
		0x0C, 'm', 'a', 't', 'e', 'r', 'i', 'a', 'l', '.', 'm', 't', 'l',
		0x03, 0x00, 0x00, 0x00,
		9, 9, 9,
		0x00,
	}
	assert.Equal(t, want, buf.Bytes())
	assert.Equal(t, int64(len(want)), n)
}

func TestExportBlobStreamRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	_, err := sampleBlobs().WriteTo(&buf)
	require.NoError(t, err)
	buf.WriteString("trailer")

	r := bytes.NewReader(buf.Bytes())
	got, err := ReadExportDataBlob(r)
	require.NoError(t, err)
	assert.Equal(t, sampleBlobs(), got)
	assert.True(t, got.HasNext())
	assert.Len(t, got.Blobs(), 2)
	assert.Equal(t, len("trailer"), r.Len(), "reader stops after the chain")
}

func TestExportBlobLongName(t *testing.T) {
	name := string(bytes.Repeat([]byte("n"), 300))
	var buf bytes.Buffer
	_, err := (&ExportDataBlob{Name: name}).WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAC, 0x02}, buf.Bytes()[:2], "7-bit encoded length")

	got, err := ReadExportDataBlob(&buf)
	require.NoError(t, err)
	assert.Equal(t, name, got.Name)
}

func TestExportBlobMalformedStream(t *testing.T) {
	var full bytes.Buffer
	_, err := sampleBlobs().WriteTo(&full)
	require.NoError(t, err)

	tests := []struct {
		name  string
		input []byte
	}{
		{"empty", nil},
		{"truncated name", []byte{0x05, 'a', 'b'}},
		{"truncated length", []byte{0x00, 0x01}},
		{"negative length", []byte{0x00, 0xFF, 0xFF, 0xFF, 0xFF}},
		{"truncated data", []byte{0x00, 0x04, 0x00, 0x00, 0x00, 1, 2}},
		{"missing flag", []byte{0x00, 0x00, 0x00, 0x00, 0x00}},
		{"bad flag", []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x07}},
		{"promised next blob", full.Bytes()[:10]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadExportDataBlob(bytes.NewReader(tt.input))
			assert.ErrorIs(t, err, native.ErrMalformedBlobStream)
		})
	}
}

func TestExportBlobNativeChain(t *testing.T) {
	h, tc := newTestTranscoder(t)
	hd, err := Encode(tc, sampleBlobs())
	require.NoError(t, err)

	b, err := h.Span(hd.Ptr(), exportBlobL.layout.Size())
	require.NoError(t, err)
	assert.Equal(t, uint32(4), u32At(b, exportBlobL.size))
	assert.NotEqual(t, native.Null, ptrAt(b, exportBlobL.next))

	got, err := FromNative[ExportDataBlob](tc, hd.Ptr())
	require.NoError(t, err)
	assert.Equal(t, sampleBlobs(), got)

	require.NoError(t, hd.Release())
	requireNoLeaks(t, h)
}

func TestExportBlobCycleRejected(t *testing.T) {
	h, tc := newTestTranscoder(t)
	a := &ExportDataBlob{Name: "a", Data: []byte{1}}
	a.Next = &ExportDataBlob{Name: "b", Next: a}

	_, err := ToNative(tc, a)
	assert.ErrorIs(t, err, native.ErrInvalidScene)
	requireNoLeaks(t, h)

	var buf bytes.Buffer
	n, err := a.WriteTo(&buf)
	assert.ErrorIs(t, err, native.ErrInvalidScene)
	assert.Zero(t, n)
	assert.Zero(t, buf.Len())
	assert.Len(t, a.Blobs(), 2)
}

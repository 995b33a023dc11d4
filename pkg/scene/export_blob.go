package scene

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"

	"github.com/Faultbox/assetbridge/pkg/native"
)

// maxBlobNameLength bounds names read from a blob stream.
const maxBlobNameLength = 64 << 10

// ExportDataBlob is one file produced by an exporter. Exporters that write
// several files return a chain; the first blob has an empty name and the
// rest are named after the file they represent.
type ExportDataBlob struct {
	Name string
	Data []byte
	Next *ExportDataBlob
}

// HasNext reports whether another blob follows.
func (eb *ExportDataBlob) HasNext() bool { return eb.Next != nil }

// Blobs returns the chain as a slice, starting with eb. A chain that loops
// back is cut before the first repeated blob.
func (eb *ExportDataBlob) Blobs() []*ExportDataBlob {
	var out []*ExportDataBlob
	seen := make(map[*ExportDataBlob]bool)
	for cur := eb; cur != nil && !seen[cur]; cur = cur.Next {
		seen[cur] = true
		out = append(out, cur)
	}
	return out
}

func (eb *ExportDataBlob) nativeLayout() *native.Layout { return exportBlobL.layout }

func (eb *ExportDataBlob) toNative(tc *Transcoder, _ native.Ptr, b []byte) error {
	f := exportBlobL
	seen := make(map[*ExportDataBlob]bool)
	for cur, i := eb, 0; cur != nil; cur, i = cur.Next, i+1 {
		if seen[cur] {
			return native.Errorf(native.PhaseEncode, native.ErrInvalidScene, "blob chain loops back at %d", i)
		}
		seen[cur] = true
		if err := tc.putString(b, f.name, cur.Name); err != nil {
			return native.AtPath(err, native.Index("blobs", i))
		}
		data, err := tc.heap.AllocBytes(cur.Data)
		if err != nil {
			return err
		}
		putPtr(b, f.data, data)
		putU32(b, f.size, uint32(len(cur.Data)))
		if cur.Next == nil {
			break
		}
		next, err := tc.heap.Alloc(f.layout.Size(), f.layout.Align())
		if err != nil {
			return err
		}
		putPtr(b, f.next, next)
		if b, err = tc.heap.Span(next, f.layout.Size()); err != nil {
			return err
		}
	}
	return nil
}

func (eb *ExportDataBlob) fromNative(tc *Transcoder, b []byte) error {
	f := exportBlobL
	*eb = ExportDataBlob{}
	seen := make(map[native.Ptr]bool)
	for cur, i := eb, 0; ; i++ {
		name, err := tc.getString(b, f.name)
		if err != nil {
			return native.AtPath(err, native.Index("blobs", i))
		}
		data, size, err := pair(b, f.size, f.data)
		if err != nil {
			return native.AtPath(err, native.Index("blobs", i))
		}
		raw, err := tc.heap.Read(data, size)
		if err != nil {
			return native.AtPath(native.Corrupt("%v", err), native.Index("blobs", i))
		}
		cur.Name, cur.Data = name, raw

		next := ptrAt(b, f.next)
		if next == native.Null {
			return nil
		}
		if seen[next] {
			return native.Corrupt("blob chain loops back at 0x%x", uint32(next))
		}
		seen[next] = true
		if b, err = tc.span(next, f.layout); err != nil {
			return native.AtPath(err, native.Index("blobs", i+1))
		}
		cur.Next = &ExportDataBlob{}
		cur = cur.Next
	}
}

// freeNative releases the data of every blob and all chained structs after
// the first.
func (eb *ExportDataBlob) freeNative(tc *Transcoder, b []byte) error {
	f := exportBlobL
	var (
		errs    []error
		structs []native.Ptr
	)
	seen := make(map[native.Ptr]bool)
	for {
		next := ptrAt(b, f.next)
		errs = append(errs, freeAt(tc, b, f.data))
		if next == native.Null || seen[next] {
			break
		}
		seen[next] = true
		nb, err := tc.span(next, f.layout)
		if err != nil {
			errs = append(errs, err)
			break
		}
		b = nb
		structs = append(structs, next)
	}
	for _, p := range structs {
		errs = append(errs, tc.heap.Free(p))
	}
	return errors.Join(errs...)
}

// WriteTo serializes the chain: for each blob a uvarint name length, the
// UTF-8 name, a little-endian int32 data length, the data, and one byte
// that is 1 when another blob follows. A chain that loops back is
// rejected before anything is written.
func (eb *ExportDataBlob) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	blobs := eb.Blobs()
	if n := len(blobs); n > 0 && blobs[n-1].Next != nil {
		return 0, native.Errorf(native.PhaseStream, native.ErrInvalidScene, "blob chain loops back at %d", n)
	}
	for i, cur := range blobs {
		buf.Write(binary.AppendUvarint(nil, uint64(len(cur.Name))))
		buf.WriteString(cur.Name)
		if len(cur.Data) > 1<<31-1 {
			return 0, native.Errorf(native.PhaseStream, native.ErrMalformedBlobStream, "blob %q exceeds 2 GiB", cur.Name)
		}
		var n [4]byte
		binary.LittleEndian.PutUint32(n[:], uint32(len(cur.Data)))
		buf.Write(n[:])
		buf.Write(cur.Data)
		if i < len(blobs)-1 {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	}
	return buf.WriteTo(w)
}

// ReadExportDataBlob reads a chain written by WriteTo. It consumes exactly
// the bytes of the chain from r.
func ReadExportDataBlob(r io.Reader) (*ExportDataBlob, error) {
	br, ok := r.(byteStream)
	if !ok {
		br = &byteReader{r: r}
	}
	var head, tail *ExportDataBlob
	for i := 0; ; i++ {
		blob, more, err := readBlob(br)
		if err != nil {
			return nil, native.AtPath(err, native.Index("blobs", i))
		}
		if head == nil {
			head = blob
		} else {
			tail.Next = blob
		}
		tail = blob
		if !more {
			return head, nil
		}
	}
}

type byteStream interface {
	io.Reader
	io.ByteReader
}

func readBlob(r byteStream) (*ExportDataBlob, bool, error) {
	malformed := func(format string, args ...any) error {
		return native.Errorf(native.PhaseStream, native.ErrMalformedBlobStream, format, args...)
	}
	nameLen, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, false, malformed("name length: %v", err)
	}
	if nameLen > maxBlobNameLength {
		return nil, false, malformed("name length %d", nameLen)
	}
	name := make([]byte, nameLen)
	if _, err := io.ReadFull(r, name); err != nil {
		return nil, false, malformed("name: %v", err)
	}
	var n [4]byte
	if _, err := io.ReadFull(r, n[:]); err != nil {
		return nil, false, malformed("data length: %v", err)
	}
	size := int32(binary.LittleEndian.Uint32(n[:]))
	if size < 0 {
		return nil, false, malformed("negative data length %d", size)
	}
	var data bytes.Buffer
	if _, err := io.CopyN(&data, r, int64(size)); err != nil {
		return nil, false, malformed("data: %v", err)
	}
	more, err := r.ReadByte()
	if err != nil {
		return nil, false, malformed("next flag: %v", err)
	}
	if more > 1 {
		return nil, false, malformed("next flag %d", more)
	}
	blob := &ExportDataBlob{Name: string(name)}
	if data.Len() > 0 {
		blob.Data = data.Bytes()
	}
	return blob, more == 1, nil
}

// byteReader reads one byte at a time so no input beyond the chain is
// consumed.
type byteReader struct {
	r   io.Reader
	one [1]byte
}

func (b *byteReader) Read(p []byte) (int, error) { return b.r.Read(p) }

func (b *byteReader) ReadByte() (byte, error) {
	if _, err := io.ReadFull(b.r, b.one[:]); err != nil {
		return 0, err
	}
	return b.one[0], nil
}

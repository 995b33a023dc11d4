package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Faultbox/assetbridge/pkg/native"
	"github.com/Faultbox/assetbridge/pkg/scene"
)

func (t *tool) cmdBlob(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: scenetool blob <pack|unpack|list> ...", errUsage)
	}
	switch args[0] {
	case "pack":
		return t.cmdBlobPack(args[1:])
	case "unpack", "x":
		return t.cmdBlobUnpack(args[1:])
	case "list", "ls":
		return t.cmdBlobList(args[1:])
	default:
		return fmt.Errorf("%w: unknown blob command %s", errUsage, args[0])
	}
}

// cmdBlobPack chains files the way an exporter does: the first file is the
// unnamed primary blob and the rest are named by their base name. The chain
// passes through native memory before it is streamed out.
func (t *tool) cmdBlobPack(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: scenetool blob pack <out> <file>...", errUsage)
	}
	out, files := args[0], args[1:]

	var head, tail *scene.ExportDataBlob
	for i, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return err
		}
		b := &scene.ExportDataBlob{Data: data}
		if i > 0 {
			b.Name = filepath.Base(f)
		}
		if head == nil {
			head = b
		} else {
			tail.Next = b
		}
		tail = b
	}

	heap := t.cfg.NewHeap(native.WithLogger(t.log.Named("heap")))
	tc := scene.NewTranscoder(heap, scene.WithLogger(t.log.Named("transcode")))
	hd, err := scene.Encode(tc, head)
	if err != nil {
		return fmt.Errorf("encode blobs: %w", err)
	}
	chain, err := scene.FromNative[scene.ExportDataBlob](tc, hd.Ptr())
	if rerr := hd.Release(); err == nil {
		err = rerr
	}
	if err != nil {
		return fmt.Errorf("decode blobs: %w", err)
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	n, err := chain.WriteTo(w)
	if err == nil {
		err = w.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	t.log.Debug("blob stream written", zap.String("path", out), zap.Int64("bytes", n))
	fmt.Fprintf(t.out, "Packed: %s (%d blobs, %d bytes)\n", out, len(chain.Blobs()), n)
	return nil
}

func readBlobs(path string) (*scene.ExportDataBlob, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	chain, err := scene.ReadExportDataBlob(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return chain, nil
}

func (t *tool) cmdBlobUnpack(args []string) error {
	fs := flag.NewFlagSet("unpack", flag.ContinueOnError)
	fs.SetOutput(t.out)
	primary := fs.String("primary", "primary.bin", "File name for the unnamed first blob")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("%w: scenetool blob unpack [-primary name] <in> <dir>", errUsage)
	}

	chain, err := readBlobs(fs.Arg(0))
	if err != nil {
		return err
	}
	dir := fs.Arg(1)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	for i, b := range chain.Blobs() {
		name := filepath.Base(b.Name)
		if b.Name == "" || name == "." || name == string(filepath.Separator) {
			name = *primary
			if i > 0 {
				name = fmt.Sprintf("blob%d.bin", i)
			}
		}
		outputPath := filepath.Join(dir, name)
		if err := os.WriteFile(outputPath, b.Data, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", outputPath, err)
		}
		fmt.Fprintf(t.out, "Extracted: %s (%d bytes)\n", outputPath, len(b.Data))
	}
	return nil
}

func (t *tool) cmdBlobList(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: scenetool blob list <in>", errUsage)
	}
	chain, err := readBlobs(args[0])
	if err != nil {
		return err
	}
	for i, b := range chain.Blobs() {
		name := b.Name
		if name == "" {
			name = "(primary)"
		}
		fmt.Fprintf(t.out, "%3d  %-32s %d\n", i, name, len(b.Data))
	}
	return nil
}

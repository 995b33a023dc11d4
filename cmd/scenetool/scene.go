package main

import (
	"errors"
	"flag"
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"github.com/Faultbox/assetbridge/internal/scenedoc"
	"github.com/Faultbox/assetbridge/pkg/native"
	"github.com/Faultbox/assetbridge/pkg/scene"
)

var errMismatch = errors.New("decoded scene differs from the document")

func (t *tool) loadScene(path string) (*scene.Scene, error) {
	doc, err := scenedoc.LoadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := doc.Build()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	t.log.Debug("scene document loaded", zap.String("path", path), zap.Stringer("scene", s))
	return s, nil
}

func (t *tool) cmdInfo(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: scenetool info <scene.yaml>", errUsage)
	}
	s, err := t.loadScene(args[0])
	if err != nil {
		return err
	}
	return scenedoc.Summarize(s).WriteYAML(t.out)
}

func (t *tool) cmdRoundTrip(args []string) error {
	fs := flag.NewFlagSet("roundtrip", flag.ContinueOnError)
	fs.SetOutput(t.out)
	quiet := fs.Bool("q", false, "Only report the result")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: scenetool roundtrip [-q] <scene.yaml>", errUsage)
	}

	s, err := t.loadScene(fs.Arg(0))
	if err != nil {
		return err
	}

	heap := t.cfg.NewHeap(native.WithLogger(t.log.Named("heap")))
	opts, err := t.cfg.TranscoderOptions()
	if err != nil {
		return err
	}
	tc := scene.NewTranscoder(heap, append(opts, scene.WithLogger(t.log.Named("transcode")))...)

	hd, err := tc.EncodeScene(s)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	encoded := heap.Stats()

	decoded, decodeErr := tc.DecodeScene(hd.Ptr())
	if err := errors.Join(decodeErr, hd.Release()); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	released := heap.Stats()

	t.log.Info("round trip complete",
		zap.Int("blocks", encoded.LiveBlocks),
		zap.Uint32("bytes", encoded.LiveBytes),
		zap.Int("leaked", released.LiveBlocks))

	if !*quiet {
		sum := scenedoc.Summarize(decoded)
		sum.Heap = scenedoc.NewHeapSummary(encoded)
		if err := sum.WriteYAML(t.out); err != nil {
			return err
		}
	}
	if released.LiveBlocks != 0 {
		return fmt.Errorf("%d native blocks still live after release", released.LiveBlocks)
	}
	if !reflect.DeepEqual(s, decoded) {
		return errMismatch
	}
	fmt.Fprintf(t.out, "OK: %s (%d native blocks, %d bytes)\n", s, encoded.LiveBlocks, encoded.LiveBytes)
	return nil
}

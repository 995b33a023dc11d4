// scenetool is a CLI utility for exercising the scene transcoder and
// export blob streams.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/assetbridge/internal/config"
	"github.com/Faultbox/assetbridge/internal/logger"
)

// errUsage marks bad invocations; main prints usage for it.
var errUsage = errors.New("usage")

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.InitWithFileConfig(cfg.Logging.Level, cfg.Logging.FileConfig(), true); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	args := config.Args()
	if len(args) < 1 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	t := &tool{cfg: cfg, out: os.Stdout, log: logger.Log}
	if err := t.run(args[0], args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, err)
			printUsage(os.Stderr)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		logger.Sync()
		os.Exit(1)
	}
}

// tool carries what every command needs.
type tool struct {
	cfg *config.Config
	out io.Writer
	log *zap.Logger
}

func (t *tool) run(command string, args []string) error {
	switch command {
	case "info":
		return t.cmdInfo(args)
	case "roundtrip", "rt":
		return t.cmdRoundTrip(args)
	case "blob":
		return t.cmdBlob(args)
	case "config":
		return t.cmdConfig(args)
	case "help", "-h", "--help":
		printUsage(t.out)
		return nil
	default:
		return fmt.Errorf("%w: unknown command %s", errUsage, command)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `scenetool - scene transcoder and export blob utility

Usage:
  scenetool [flags] <command> [options]

Flags:
  -config <file>     Config file (.yaml, .yml or .toml)
  -debug             Enable debug logging
  -log-file <file>   Also log to a rotating file
  -max-depth <n>     Maximum node depth accepted when decoding
  -charset <name>    Legacy charset for non-UTF-8 native strings
  -heap-max <bytes>  Native heap limit

Commands:
  info <scene.yaml>                 Summarize a scene document
  roundtrip <scene.yaml>            Encode to native memory, decode back and compare
  blob pack <out> <file>...         Write files as an export blob stream
  blob unpack <in> <dir>            Extract every blob of a stream
  blob list <in>                    List the blobs of a stream
  config save <file>                Write the effective config (.yaml or .toml)

Examples:
  scenetool info crate.yaml
  scenetool -debug roundtrip crate.yaml
  scenetool blob pack model.blob model.obj model.mtl
  scenetool blob unpack model.blob ./out`)
}

func (t *tool) cmdConfig(args []string) error {
	if len(args) != 2 || args[0] != "save" {
		return fmt.Errorf("%w: scenetool config save <file>", errUsage)
	}
	if err := t.cfg.SaveTo(args[1]); err != nil {
		return err
	}
	fmt.Fprintf(t.out, "Saved: %s\n", args[1])
	return nil
}

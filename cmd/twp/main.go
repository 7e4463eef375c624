// Command twp decodes TWP-framed, STP-packeted trace capture files (or
// stdin) and prints one line per event. It has three subcommands:
// "streams" (an alias "nibbles" is also accepted) demultiplexes a raw
// capture into per-stream bytes, "packets" runs the full pipeline and
// prints decoded STP packets, and "dump-config" prints the resolved
// decoder configuration for the given flags.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/twp-project/twp/frame"
	"github.com/twp-project/twp/internal/trace"
	"github.com/twp-project/twp/stp"
	"github.com/twp-project/twp/twperr"
	"github.com/twp-project/twp/twplog"
	"github.com/twp-project/twp/twpprint"
)

var (
	outputPath  string
	bail        bool
	fileOffsets bool
	padEnabled  bool
	verbose     bool
	configPath  string
)

// runConfig is the YAML-serializable shape of the flags that govern a
// decode run. dump-config prints one of these; --config loads one as a
// set of flag defaults, which explicit command-line flags still override.
type runConfig struct {
	PaddingEnabled bool `yaml:"padding_enabled"`
	Bail           bool `yaml:"bail"`
	FileOffsets    bool `yaml:"file_offsets"`
}

func registerFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&outputPath, "output", "o", "", "write to FILE instead of stdout")
	fs.StringVar(&configPath, "config", "", "load flag defaults from a YAML config file (explicit flags still override)")
	fs.BoolVar(&bail, "bail", false, "stop at the first decode error instead of reporting and continuing")
	fs.BoolVar(&fileOffsets, "file-offsets", false, "print absolute source-file offsets instead of per-stream-relative ones")
	fs.BoolVar(&padEnabled, "pad", true, "recognize the 2-byte Padding packet on halfword boundaries")
	fs.BoolVarP(&verbose, "verbose", "v", false, "enable debug-level logging to stderr")
}

// loadConfigFile parses path as YAML into a runConfig and applies it to the
// package flag vars. Call before Parse so that explicit flags win.
func loadConfigFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var cfg runConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	padEnabled = cfg.PaddingEnabled
	bail = cfg.Bail
	fileOffsets = cfg.FileOffsets
	return nil
}

// configFlagValue pre-scans argv for --config/--config=FILE so a config
// file's defaults can be applied before the real flag parse overrides them.
func configFlagValue(args []string) string {
	for i, a := range args {
		switch {
		case a == "--config" && i+1 < len(args):
			return args[i+1]
		case len(a) > len("--config=") && a[:len("--config=")] == "--config=":
			return a[len("--config="):]
		}
	}
	return ""
}

func openInput(args []string) (io.ReadCloser, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(args[0])
}

func openOutput() (io.WriteCloser, error) {
	if outputPath == "" || outputPath == "-" {
		return nopWriteCloser{os.Stdout}, nil
	}
	return os.Create(outputPath)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func newLogger() twplog.Logger {
	level := twplog.SeverityWarning
	if verbose {
		level = twplog.SeverityDebug
	}
	return twplog.NewCharmLogger(os.Stderr, level)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	fs := pflag.NewFlagSet(cmd, pflag.ExitOnError)
	registerFlags(fs)

	if path := configFlagValue(os.Args[2:]); path != "" {
		if err := loadConfigFile(path); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
	}
	if err := fs.Parse(os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	var err error
	switch cmd {
	case "streams", "nibbles":
		err = runStreams(fs.Args())
	case "packets":
		err = runPackets(fs.Args())
	case "dump-config":
		err = runDumpConfig()
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: twp <streams|nibbles|packets|dump-config> [flags] [FILE]")
	fmt.Fprintln(os.Stderr, "  FILE defaults to stdin; '-' also means stdin.")
}

func runDumpConfig() error {
	cfg := runConfig{PaddingEnabled: padEnabled, Bail: bail, FileOffsets: fileOffsets}
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(out)
	return err
}

// runStreams demultiplexes a raw capture into per-stream bytes, writing
// each stream's bytes as they arrive and reporting frame-layer and demux
// errors on stderr prefixed "byte <offset>:".
func runStreams(args []string) error {
	in, err := openInput(args)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := openOutput()
	if err != nil {
		return err
	}
	defer out.Close()

	log := newLogger()
	layer := frame.NewLayerParser(frame.ParserConfig{PaddingEnabled: padEnabled})
	fp := frame.NewFrameParser(frame.NoStream)
	streamPos := map[frame.Stream]int64{}

	handleByte := func(be frame.ByteEvent, errR *twperr.Error) error {
		if errR != nil {
			log.Warning(errR.Error())
			fmt.Fprintf(os.Stderr, "byte %d: %s\n", errR.Offset, errR.Error())
			if bail {
				return twperr.Stop
			}
			return nil
		}
		offset := streamPos[be.Stream]
		streamPos[be.Stream] = offset + 1
		printed := offset
		if fileOffsets {
			printed = be.Offset
		}
		id, _ := be.Stream.ID()
		_, werr := fmt.Fprintf(out, "%d\t0x%02x\t0x%02x\n", printed, uint8(id), be.Data)
		return werr
	}

	h := func(ev frame.Event, errR *twperr.Error) error {
		if errR != nil {
			log.Warning(errR.Error())
			fmt.Fprintf(os.Stderr, "byte %d: %s\n", errR.Offset, errR.Error())
			if bail {
				return twperr.Stop
			}
			return nil
		}
		if ev.Kind != frame.EventFrame {
			return nil
		}
		return fp.ParseFrame(ev.Bytes, ev.ByteOffsets[0], handleByte)
	}

	buf := make([]byte, 64*1024)
	var offset int64
	for {
		n, rerr := in.Read(buf)
		if n > 0 {
			if perr := layer.ProcessBytes(buf[:n], offset, h); perr != nil {
				if twperr.IsStop(perr) {
					return nil
				}
				return perr
			}
			offset += int64(n)
		}
		if rerr == io.EOF {
			if ferr := layer.Finish(h); ferr != nil && !twperr.IsStop(ferr) {
				return ferr
			}
			return nil
		}
		if rerr != nil {
			return rerr
		}
	}
}

func runPackets(args []string) error {
	in, err := openInput(args)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := openOutput()
	if err != nil {
		return err
	}
	defer out.Close()

	log := newLogger()
	printer := twpprint.NewPrinter(out)

	parserCfg := frame.ParserConfig{PaddingEnabled: padEnabled}
	decCfg := stp.DefaultDecoderConfig()

	return trace.Run(in, parserCfg, decCfg, log, bail, func(ev trace.StreamEvent) error {
		return printer.PrintStreamEvent(ev)
	})
}

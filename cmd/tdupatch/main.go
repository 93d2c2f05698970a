// Package main provides the tdupatch command-line tool.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ZacharyZcR/TDUPatch/internal/applog"
	"github.com/ZacharyZcR/TDUPatch/internal/cli"
	"github.com/ZacharyZcR/TDUPatch/internal/patch"
	"github.com/ZacharyZcR/TDUPatch/internal/pe"
	"github.com/fatih/color"
	flag "github.com/spf13/pflag"
)

var (
	// Patch flags.
	gravity  = flag.StringP("gravity", "g", "", "overall gravity, y axis, down is negative (default in game: -9.81)")
	modifier = flag.StringP("modifier", "m", "", "normal mode gravity modifier, applied while a wheel is off the ground (default in game: 1.0)")
	forceHC  = flag.Bool("force-hc", false, "force hardcore mode physics in normal mode")
	revert   = flag.Bool("revert", false, "restore every patch site to its original bytes")
	dryRun   = flag.BoolP("dry-run", "n", false, "show the bytes that would change without writing")

	// Report flags.
	verbose = flag.BoolP("verbose", "v", false, "show raw site bytes and PE sections")
	disasm  = flag.Bool("disasm", false, "list the instructions at code patch sites")
	noColor = flag.Bool("no-color", false, "disable colored output")
	logFile = flag.String("log-file", "", "log file (default: "+applog.FileName+" in the working directory)")
)

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if *noColor {
		color.NoColor = true
	}

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	logger, closer := openLog()
	defer func() { _ = closer.Close() }()

	if err := run(flag.Arg(0), logger); err != nil {
		red := color.New(color.FgRed, color.Bold)
		_, _ = red.Fprintf(os.Stderr, "\nerror: %v\n\n", err)
		_ = closer.Close()
		os.Exit(1)
	}
}

func openLog() (*slog.Logger, io.Closer) {
	path := *logFile
	if path == "" {
		var err error
		if path, err = applog.DefaultPath(); err != nil {
			warnf("logging disabled: %v\n", err)
			return applog.Discard(), io.NopCloser(nil)
		}
	}

	logger, closer, err := applog.Open(path)
	if err != nil {
		warnf("logging disabled: %v\n", err)
		return applog.Discard(), io.NopCloser(nil)
	}
	return logger, closer
}

func run(path string, logger *slog.Logger) error {
	values, err := valueFlags{
		gravity:  *gravity,
		modifier: *modifier,
		forceHC:  *forceHC,
	}.values(flag.CommandLine.Changed)
	if err != nil {
		logger.Error("invalid value", "path", path, "err", err)
		return err
	}
	if *revert && len(values) > 0 {
		return fmt.Errorf("--revert cannot be combined with --gravity, --modifier or --force-hc")
	}

	p, err := patch.Open(path)
	if err != nil {
		logger.Error("identification failed", "path", path, "err", err)
		return err
	}
	logger.Info("identified", "path", path, "variant", p.Variant().Name)

	switch {
	case *revert:
		return revertFile(p, logger)
	case len(values) > 0:
		return patchFile(p, values, logger)
	default:
		return report(p)
	}
}

func report(p *patch.Patcher) error {
	info, err := buildInfo(p)
	if err != nil {
		return err
	}

	reporter := cli.NewReporter(info)
	reporter.SetVerbose(*verbose)
	reporter.Print()
	fmt.Println()
	return nil
}

func buildInfo(p *patch.Patcher) (*cli.Info, error) {
	image := p.Image()

	fingerprint, err := patch.Fingerprint(image, p.Variant())
	if err != nil {
		return nil, err
	}
	sites, err := p.Inspect()
	if err != nil {
		return nil, err
	}

	info := &cli.Info{
		Path:        p.Path(),
		Size:        p.Size(),
		Variant:     p.Variant(),
		Fingerprint: fingerprint,
		Sites:       sites,
	}

	// Missing headers only cost the address column.
	if layout, err := pe.Parse(image); err == nil {
		info.Layout = layout
	}

	if *disasm {
		info.Listings = make(map[patch.Role][]patch.Instruction)
		for _, s := range p.Variant().Sites {
			if s.Kind() == patch.SiteFloat {
				continue
			}
			pc := uint64(s.Offset())
			if info.Layout != nil {
				if va, ok := info.Layout.OffsetToVA(int64(s.Offset())); ok {
					pc = va
				}
			}
			listing, err := patch.Disassemble(s, image, pc)
			if err != nil {
				return nil, err
			}
			info.Listings[s.Role()] = listing
		}
	}

	return info, nil
}

func patchFile(p *patch.Patcher, values patch.Values, logger *slog.Logger) error {
	cyan := color.New(color.FgCyan)

	for role := range values {
		if _, ok := p.Variant().Site(role); !ok {
			warnf("⚠️  %s has no %s site, ignoring it\n", p.Variant().Name, role)
		}
	}

	changes, err := p.Preview(values)
	if err != nil {
		logger.Error("patch failed", "path", p.Path(), "err", err)
		return err
	}
	cli.PrintChanges(color.Output, changes)

	if *dryRun {
		_, _ = cyan.Println("\ndry run, nothing written")
		return nil
	}
	if len(changes) == 0 {
		return nil
	}

	_, _ = cyan.Printf("\npatching %s (%s)...\n", p.Path(), p.Variant().Name)
	if err := p.Apply(values); err != nil {
		logger.Error("patch failed", "path", p.Path(), "err", err)
		return err
	}
	logger.Info("patched", append([]any{"path", p.Path(), "variant", p.Variant().Name}, valueAttrs(values)...)...)

	printSuccess(p, "successfully patched")
	return nil
}

func revertFile(p *patch.Patcher, logger *slog.Logger) error {
	changes, err := p.PreviewRevert()
	if err != nil {
		return err
	}
	cli.PrintChanges(color.Output, changes)

	if *dryRun || len(changes) == 0 {
		return nil
	}

	if err := p.Revert(); err != nil {
		logger.Error("revert failed", "path", p.Path(), "err", err)
		return err
	}
	logger.Info("reverted", "path", p.Path(), "variant", p.Variant().Name)

	printSuccess(p, "successfully reverted")
	return nil
}

func printSuccess(p *patch.Patcher, what string) {
	green := color.New(color.FgGreen, color.Bold)
	fmt.Println()
	_, _ = green.Printf("✓ %s %s\n", what, p.Path())
	_, _ = green.Printf("✓ pristine copy kept at %s\n", patch.BackupPath(p.Path()))

	// The game does not check it, but say so when the header checksum is stale.
	if layout, err := pe.Parse(p.Image()); err == nil && layout.Checksum != nil && !layout.Checksum.Valid {
		warnf("⚠️  PE checksum no longer matches (stored 0x%08X, computed 0x%08X)\n",
			layout.Checksum.Stored, layout.Checksum.Computed)
	}
	fmt.Println()
}

// valueFlags holds the raw patch flags. Values are parsed here, before the
// core sees them.
type valueFlags struct {
	gravity  string
	modifier string
	forceHC  bool
}

func (f valueFlags) values(changed func(name string) bool) (patch.Values, error) {
	values := make(patch.Values)

	if changed("gravity") {
		v, err := patch.ParseFloat(f.gravity)
		if err != nil {
			return nil, fmt.Errorf("--gravity: %w", err)
		}
		values[patch.RoleGlobalGravity] = v
	}
	if changed("modifier") {
		v, err := patch.ParseFloat(f.modifier)
		if err != nil {
			return nil, fmt.Errorf("--modifier: %w", err)
		}
		values[patch.RoleNormalModeGravityModifier] = v
	}
	if changed("force-hc") {
		values[patch.RoleForceHCPhysics] = patch.Bool(f.forceHC)
	}

	return values, nil
}

func valueAttrs(values patch.Values) []any {
	attrs := make([]any, 0, 2*len(values))
	for role, v := range values {
		attrs = append(attrs, string(role), v.String())
	}
	return attrs
}

func warnf(format string, args ...any) {
	yellow := color.New(color.FgYellow)
	_, _ = yellow.Fprintf(os.Stderr, format, args...)
}

func printUsage() {
	cyan := color.New(color.FgCyan, color.Bold)
	_, _ = cyan.Println("\ntdupatch - Test Drive Unlimited gravity patcher")

	fmt.Println("\nUsage:")
	fmt.Println("  tdupatch [options] <TestDriveUnlimited.exe>")
	fmt.Println("\nWithout patch options the file is identified and its current values are shown.")
	fmt.Println("The first patch keeps a pristine copy at <file>.bak; later patches never overwrite it.")
	fmt.Println("\nOptions:")
	flag.PrintDefaults()

	fmt.Println("\nNotes:")
	fmt.Println("  The modifier only applies in normal mode while a wheel is lifted off the ground;")
	fmt.Println("  the overall gravity is used everywhere. A 0.0 modifier removes the extra downforce.")
	fmt.Println("  Negative modifiers or positive gravity send the vehicle flying upward.")

	fmt.Println("\nExamples:")
	fmt.Println("  tdupatch TestDriveUnlimited.exe")
	fmt.Println("  tdupatch --disasm -v TestDriveUnlimited.exe")
	fmt.Println("  tdupatch -m 0.2 TestDriveUnlimited.exe")
	fmt.Println("  tdupatch -g -9.81 -m 0.0 -n TestDriveUnlimited.exe")
	fmt.Println("  tdupatch --revert TestDriveUnlimited.exe")
	fmt.Println()
}

// Package cli provides command-line interface utilities.
package cli

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/ZacharyZcR/TDUPatch/internal/patch"
	"github.com/ZacharyZcR/TDUPatch/internal/pe"
	"github.com/fatih/color"
)

// Info is everything a report shows about one executable.
type Info struct {
	Path        string
	Size        int
	Variant     *patch.Variant
	Fingerprint string
	Sites       []patch.SiteReport
	// Layout is nil when the PE headers could not be read.
	Layout *pe.Layout
	// Listings holds instruction listings of code sites, when requested.
	Listings map[patch.Role][]patch.Instruction
}

// Reporter formats and prints identification results.
type Reporter struct {
	info    *Info
	out     io.Writer
	verbose bool
}

// NewReporter creates a new reporter for the given info.
func NewReporter(info *Info) *Reporter {
	return &Reporter{info: info, out: color.Output}
}

// SetOutput redirects the report.
func (r *Reporter) SetOutput(w io.Writer) {
	r.out = w
}

// SetVerbose enables verbose mode (raw site bytes and PE sections).
func (r *Reporter) SetVerbose(verbose bool) {
	r.verbose = verbose
}

// Print outputs the complete report.
func (r *Reporter) Print() {
	r.printHeader()
	r.printBasicInfo()
	r.printSites()
	r.printListings()
	if r.verbose {
		r.printSections()
	}
}

func (r *Reporter) printHeader() {
	cyan := color.New(color.FgCyan, color.Bold)
	_, _ = cyan.Fprintln(r.out, "\n╔════════════════════════════════════════╗")
	_, _ = cyan.Fprintln(r.out, "║     Test Drive Unlimited Patcher       ║")
	_, _ = cyan.Fprintln(r.out, "╚════════════════════════════════════════╝")
}

func (r *Reporter) printBasicInfo() {
	yellow := color.New(color.FgYellow, color.Bold)
	_, _ = yellow.Fprintln(r.out, "\n[File]")

	fmt.Fprintf(r.out, "  %-14s: %s\n", "Path", r.info.Path)
	fmt.Fprintf(r.out, "  %-14s: %s\n", "Size", formatSize(int64(r.info.Size)))
	fmt.Fprintf(r.out, "  %-14s: ", "Recognized as")
	_, _ = color.New(color.FgGreen, color.Bold).Fprintln(r.out, r.info.Variant.Name)
	fmt.Fprintf(r.out, "  %-14s: %s\n", "Fingerprint", r.info.Fingerprint)

	l := r.info.Layout
	if l == nil {
		return
	}
	fmt.Fprintf(r.out, "  %-14s: %s\n", "Architecture", l.Architecture)
	fmt.Fprintf(r.out, "  %-14s: 0x%X\n", "Image base", l.ImageBase)

	if l.Checksum != nil {
		fmt.Fprintf(r.out, "  %-14s: ", "PE checksum")
		switch {
		case l.Checksum.Stored == 0:
			_, _ = color.New(color.FgHiBlack).Fprint(r.out, "not set")
		case l.Checksum.Valid:
			_, _ = color.New(color.FgGreen).Fprintf(r.out, "valid (0x%08X)", l.Checksum.Stored)
		default:
			_, _ = color.New(color.FgYellow).Fprintf(r.out, "stale (stored 0x%08X, computed 0x%08X)",
				l.Checksum.Stored, l.Checksum.Computed)
		}
		fmt.Fprintln(r.out)
	}
}

func (r *Reporter) printSites() {
	yellow := color.New(color.FgYellow, color.Bold)
	_, _ = yellow.Fprintf(r.out, "\n[Patch sites] (%d)\n", len(r.info.Sites))

	fmt.Fprintln(r.out, strings.Repeat("-", 90))
	fmt.Fprintf(r.out, "  %-30s %-15s %-10s %-10s %-9s %s\n",
		"Role", "Kind", "Offset", "Address", "State", "Value")
	fmt.Fprintln(r.out, strings.Repeat("-", 90))

	for _, s := range r.info.Sites {
		address := "-"
		if r.info.Layout != nil {
			if va, ok := r.info.Layout.OffsetToVA(int64(s.Offset)); ok {
				address = fmt.Sprintf("0x%X", va)
			}
		}

		stateColor := color.New(color.FgWhite)
		switch s.State {
		case patch.StatePatched:
			stateColor = color.New(color.FgCyan)
		case patch.StateUnknown:
			stateColor = color.New(color.FgRed, color.Bold)
		}

		fmt.Fprintf(r.out, "  %-30s %-15s 0x%-8X %-10s ", s.Role, s.Kind, s.Offset, address)
		_, _ = stateColor.Fprintf(r.out, "%-9s", s.State)
		fmt.Fprintf(r.out, " %s\n", FormatValue(s.Value))

		if r.verbose {
			gray := color.New(color.FgHiBlack)
			_, _ = gray.Fprintf(r.out, "       bytes: % X\n", s.Current)
		}
	}
	fmt.Fprintln(r.out, strings.Repeat("-", 90))

	for _, s := range r.info.Sites {
		if s.State == patch.StateUnknown {
			_, _ = color.New(color.FgRed).Fprintf(r.out,
				"  ! %s holds bytes that are neither original nor forced; it reads as %s\n", s.Role, FormatValue(s.Value))
		}
	}
}

func (r *Reporter) printListings() {
	if len(r.info.Listings) == 0 {
		return
	}

	roles := make([]string, 0, len(r.info.Listings))
	for role := range r.info.Listings {
		roles = append(roles, string(role))
	}
	sort.Strings(roles)

	yellow := color.New(color.FgYellow, color.Bold)
	_, _ = yellow.Fprintln(r.out, "\n[Instructions]")
	for _, role := range roles {
		_, _ = color.New(color.FgGreen).Fprintf(r.out, "  %s\n", role)
		for _, inst := range r.info.Listings[patch.Role(role)] {
			fmt.Fprintf(r.out, "    %s\n", inst)
		}
	}
}

func (r *Reporter) printSections() {
	l := r.info.Layout
	if l == nil {
		return
	}

	yellow := color.New(color.FgYellow, color.Bold)
	_, _ = yellow.Fprintf(r.out, "\n[Sections] (%d)\n", len(l.Sections))
	for _, s := range l.Sections {
		fmt.Fprintf(r.out, "  %-10s 0x%08X  raw 0x%08X  %-12s %s\n",
			s.Name, s.VirtualAddress, s.Offset, formatSize(int64(s.Size)), s.Permissions)
	}
}

// PrintChanges lists byte ranges a patch modifies.
func PrintChanges(w io.Writer, changes []patch.Change) {
	yellow := color.New(color.FgYellow, color.Bold)
	_, _ = yellow.Fprintf(w, "\n[Changes] (%d)\n", len(changes))

	if len(changes) == 0 {
		fmt.Fprintln(w, "  nothing to change")
		return
	}

	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	for _, c := range changes {
		fmt.Fprintf(w, "  %s @ 0x%X\n", c.Role, c.Offset)
		_, _ = red.Fprintf(w, "    - % X\n", c.Before)
		_, _ = green.Fprintf(w, "    + % X\n", c.After)
	}
}

// FormatValue renders a value for display, floats with at least one
// decimal.
func FormatValue(v patch.Value) string {
	if v.Kind == patch.KindBool {
		return strconv.FormatBool(v.Bool)
	}
	return FormatFloat(v.Float, 1)
}

// FormatFloat prints value in plain decimal notation, padding whole numbers
// with minPrecision zeros ("1" becomes "1.0").
func FormatFloat(value float32, minPrecision int) string {
	s := strconv.FormatFloat(float64(value), 'f', -1, 32)
	if strings.ContainsAny(s, ".NI") || minPrecision <= 0 {
		return s
	}
	return s + "." + strings.Repeat("0", minPrecision)
}

func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

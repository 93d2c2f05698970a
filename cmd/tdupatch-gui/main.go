// Package main provides the tdupatch desktop application.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"github.com/ZacharyZcR/TDUPatch/internal/applog"
	"github.com/ZacharyZcR/TDUPatch/internal/cli"
	"github.com/ZacharyZcR/TDUPatch/internal/patch"
)

const help = "Select your TestDriveUnlimited.exe, then set normal mode gravity modifier and overall gravity " +
	"(y axis, down is negative) then click Patch.\n" +
	"The modifier is only applied when a wheel is lifted off the ground in normal mode, the overall gravity is used everywhere.\n" +
	"A 0.0 modifier should remove any extra downforce in normal mode, running up a ramp at 200 kph will get quite some air time.\n" +
	"1.0 is the default modifier, -9.81 is the default gravity.\n" +
	"Negative modifiers or positive gravity will send the vehicle flying upward."

// ui holds the window state. Widgets are only touched on the fyne thread;
// file work runs in goroutines that hand results back through fyne.Do.
type ui struct {
	window fyne.Window
	logger *slog.Logger

	path       string
	recognized bool
	variant    *patch.Variant
	busy       bool

	pathEntry     *widget.Entry
	statusLabel   *widget.Label
	gravityEntry  *widget.Entry
	modifierEntry *widget.Entry
	forceHCCheck  *widget.Check
	patchButton   *widget.Button
	revertButton  *widget.Button
	pickButton    *widget.Button
	logEntry      *widget.Entry
	copyButton    *widget.Button
}

func main() {
	myApp := app.New()
	myWindow := myApp.NewWindow("Test Drive Unlimited Gravity Patcher")
	myWindow.Resize(fyne.NewSize(800, 440))
	myWindow.SetFixedSize(true)

	logPath, err := applog.DefaultPath()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger, closer, err := applog.Open(logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v, logging to the window only\n", err)
		logger = applog.Discard()
	} else {
		defer func() { _ = closer.Close() }()
	}

	u := &ui{window: myWindow, logger: logger}
	myWindow.SetContent(u.build(logPath))
	u.refresh()
	myWindow.ShowAndRun()
}

func (u *ui) build(logPath string) fyne.CanvasObject {
	helpLabel := widget.NewLabel(help)
	helpLabel.Wrapping = fyne.TextWrapWord

	u.pathEntry = widget.NewEntry()
	u.pathEntry.SetPlaceHolder("TestDriveUnlimited.exe")
	u.pathEntry.Disable()
	u.pickButton = widget.NewButton("...", u.pickFile)

	u.statusLabel = widget.NewLabel("No file selected yet")

	u.gravityEntry = widget.NewEntry()
	u.gravityEntry.SetPlaceHolder("Floating point gravity value")
	u.gravityEntry.SetText("-9.81")
	u.gravityEntry.OnChanged = func(string) { u.refresh() }

	u.modifierEntry = widget.NewEntry()
	u.modifierEntry.SetPlaceHolder("Floating point gravity modifier value")
	u.modifierEntry.SetText("1.0")
	u.modifierEntry.OnChanged = func(string) { u.refresh() }

	u.forceHCCheck = widget.NewCheck("", nil)

	u.patchButton = widget.NewButton("Patch", u.patch)
	u.revertButton = widget.NewButton("Revert", u.revert)

	u.logEntry = widget.NewMultiLineEntry()
	u.logEntry.Wrapping = fyne.TextWrapWord
	u.logEntry.SetMinRowsVisible(6)
	u.logEntry.Disable()

	u.copyButton = widget.NewButton("Copy logs to clipboard", func() {
		u.window.Clipboard().SetContent(u.logEntry.Text)
	})

	fileRow := container.NewBorder(nil, nil, widget.NewLabel("Patching target:"), u.pickButton, u.pathEntry)
	valueRow := container.NewHBox(
		widget.NewLabel("Gravity:"),
		container.NewGridWrap(fyne.NewSize(120, u.gravityEntry.MinSize().Height), u.gravityEntry),
		widget.NewLabel("Normal mode gravity modifier:"),
		container.NewGridWrap(fyne.NewSize(120, u.modifierEntry.MinSize().Height), u.modifierEntry),
		widget.NewLabel("Force HC physics on normal mode:"),
		u.forceHCCheck,
		u.patchButton,
		u.revertButton,
	)

	return container.NewBorder(
		container.NewVBox(helpLabel, fileRow, u.statusLabel, valueRow),
		container.NewVBox(
			container.NewHBox(layoutSpacer(), u.copyButton),
			widget.NewLabel(fmt.Sprintf("Logs are also written to %s if possible", logPath)),
		),
		nil,
		nil,
		u.logEntry,
	)
}

func layoutSpacer() fyne.CanvasObject {
	return container.NewStack()
}

// refresh enables the actions that make sense for the current state. Only
// one file action runs at a time.
func (u *ui) refresh() {
	_, gravityErr := patch.ParseFloat(u.gravityEntry.Text)
	_, modifierErr := patch.ParseFloat(u.modifierEntry.Text)

	setEnabled(u.pickButton, !u.busy)
	setEnabled(u.patchButton, !u.busy && u.recognized && gravityErr == nil && modifierErr == nil)
	setEnabled(u.revertButton, !u.busy && u.recognized)
	setEnabled(u.copyButton, u.logEntry.Text != "")

	if u.variant != nil {
		if _, ok := u.variant.Site(patch.RoleForceHCPhysics); ok && !u.busy {
			u.forceHCCheck.Enable()
			return
		}
	}
	u.forceHCCheck.Disable()
}

func setEnabled(b *widget.Button, enabled bool) {
	if enabled {
		b.Enable()
	} else {
		b.Disable()
	}
}

func (u *ui) pickFile() {
	fd := dialog.NewFileOpen(func(file fyne.URIReadCloser, err error) {
		if err != nil {
			u.log("file picking failed: %v", err)
			return
		}
		if file == nil {
			return
		}
		path := file.URI().Path()
		_ = file.Close()
		u.load(path)
	}, u.window)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".exe"}))
	fd.Show()
}

// load identifies path and fills the value fields from it.
func (u *ui) load(path string) {
	u.path = path
	u.pathEntry.SetText(path)
	u.statusLabel.SetText("Identifying...")
	u.busy = true
	u.refresh()

	go func() {
		p, err := patch.Open(path)
		var values patch.Values
		if err == nil {
			values, err = p.Values()
		}

		fyne.Do(func() {
			u.busy = false
			defer u.refresh()

			if err != nil {
				u.recognized = false
				u.variant = nil
				u.statusLabel.SetText("File not recognized")
				u.logger.Warn("identification failed", "path", path, "err", err)
				return
			}

			u.recognized = true
			u.variant = p.Variant()
			u.statusLabel.SetText(fmt.Sprintf("File recognized as %s", p.Variant().Name))
			u.logger.Info("identified", "path", path, "variant", p.Variant().Name)

			if v, ok := values[patch.RoleNormalModeGravityModifier]; ok {
				u.modifierEntry.SetText(cli.FormatFloat(v.Float, 1))
			}
			if v, ok := values[patch.RoleGlobalGravity]; ok {
				u.gravityEntry.SetText(cli.FormatFloat(v.Float, 2))
			}
			u.forceHCCheck.SetChecked(values[patch.RoleForceHCPhysics].Bool)
		})
	}()
}

func (u *ui) patch() {
	gravity, err := patch.ParseFloat(u.gravityEntry.Text)
	if err != nil {
		u.log("failed patching %s:\n%v", u.path, err)
		return
	}
	modifier, err := patch.ParseFloat(u.modifierEntry.Text)
	if err != nil {
		u.log("failed patching %s:\n%v", u.path, err)
		return
	}

	values := patch.Values{
		patch.RoleGlobalGravity:             gravity,
		patch.RoleNormalModeGravityModifier: modifier,
	}
	if _, ok := u.variant.Site(patch.RoleForceHCPhysics); ok {
		values[patch.RoleForceHCPhysics] = patch.Bool(u.forceHCCheck.Checked)
	}

	u.run("patched", func(p *patch.Patcher) error { return p.Apply(values) })
}

func (u *ui) revert() {
	u.run("reverted", func(p *patch.Patcher) error { return p.Revert() })
}

// run re-reads the file, applies action and reports the outcome.
func (u *ui) run(done string, action func(p *patch.Patcher) error) {
	path := u.path
	u.busy = true
	u.refresh()

	go func() {
		p, err := patch.Open(path)
		if err == nil {
			err = action(p)
		}

		fyne.Do(func() {
			u.busy = false
			if err != nil {
				u.log("failed: %s %s:\n%v", strings.TrimSuffix(done, "ed"), path, err)
				u.logger.Error(done+" failed", "path", path, "err", err)
			} else {
				u.log("successfully %s %s", done, path)
				u.logger.Info(done, "path", path, "variant", p.Variant().Name,
					"gravity", u.gravityEntry.Text, "modifier", u.modifierEntry.Text,
					"force_hc", u.forceHCCheck.Checked)
			}
			u.refresh()
		})
	}()
}

// log appends a line to the log panel. Call on the fyne thread.
func (u *ui) log(format string, args ...any) {
	u.logEntry.SetText(u.logEntry.Text + fmt.Sprintf(format, args...) + "\n")
	u.logEntry.CursorRow = len(strings.Split(u.logEntry.Text, "\n")) - 1
	u.refresh()
}

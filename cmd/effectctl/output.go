package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/relicforge/relic-server-go/internal/effects"
	"github.com/relicforge/relic-server-go/internal/sheet"
)

var (
	okLabel    = color.New(color.FgGreen).Sprint
	warnLabel  = color.New(color.FgYellow).Sprint
	errLabel   = color.New(color.FgRed).Sprint
	idLabel    = color.New(color.FgCyan).Sprint
	mutedLabel = color.New(color.Faint).Sprint
)

func printPatchResults(w io.Writer, results []effects.PatchResult) {
	for _, r := range results {
		status := okLabel("ok  ")
		if !r.OK {
			status = errLabel("fail")
		}
		line := fmt.Sprintf("  %s %-16s %s", status, r.Kind, r.Field)
		if r.Error != "" {
			line += " " + mutedLabel(r.Error)
		}
		fmt.Fprintln(w, line)
	}
}

func printInstances(w io.Writer, instances []effects.Instance) {
	if len(instances) == 0 {
		fmt.Fprintln(w, "No active effects.")
		return
	}
	for _, inst := range instances {
		fmt.Fprintf(w, "%s  %s on %s (%s) %s\n",
			idLabel(inst.ID),
			inst.EffectID,
			inst.TargetID,
			inst.Adapter,
			mutedLabel(inst.CreatedAt.Format("2006-01-02 15:04:05")))
	}
}

func printCharacter(w io.Writer, snap sheet.Snapshot, all bool) {
	fmt.Fprintf(w, "%s (%s)\n", snap.Name, idLabel(snap.ID))
	names := make([]string, 0, len(snap.Attributes))
	for name := range snap.Attributes {
		if !all && strings.HasPrefix(name, "_") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-28s %s\n", name, snap.Attributes[name])
	}
}

func printResource(w io.Writer, res sheet.Resource) {
	line := fmt.Sprintf("%s %d/%d", res.Name, res.Current, res.Max)
	if res.Cadence != "" {
		line += " " + mutedLabel("("+res.Cadence+")")
	}
	fmt.Fprintln(w, line)
}

package robot

import (
	"fmt"
	"strings"

	"github.com/vk/medusa/internal/suite"
	"github.com/vk/medusa/internal/value"
)

// depsJoin separates dependency tokens in the rewritten medusa:deps
// metadata. Suites assert on this exact separator, so it is part of the
// contract with them.
const depsJoin = "    "

// Command assembles the robot invocation for one admitted run. The run's
// dynamic dependencies must already be bound. User-supplied robot arguments
// come first so medusa's own options win on conflict.
func Command(r *suite.Run, resultDir string, robotArgs []string) []string {
	deps := r.EffectiveDeps()

	argv := []string{"robot"}
	argv = append(argv, robotArgs...)
	argv = append(argv,
		"--outputdir", resultDir,
		"--output", "output.xml",
		"--log", "NONE",
		"--report", "NONE",
		"--name", r.Name,
	)

	// The suite's own metadata, rewritten as it was resolved.
	argv = append(argv,
		"--metadata", "medusa:stage:"+r.Stage,
		"--metadata", "medusa:deps:"+strings.Join(deps, depsJoin),
	)
	if len(r.ForVars) > 0 {
		argv = append(argv, "--metadata", "medusa:for:"+forMetadata(r.ForVars))
	}

	// Inserted suite-level variables.
	argv = append(argv,
		"--variable", "MEDUSA_STAGE:"+r.Stage,
		"--variable", "MEDUSA_DEPS:"+displayList(deps),
	)
	if len(r.ForVars) > 0 {
		argv = append(argv, "--variable", "MEDUSA_FOR:"+displayBindings(r.ForVars))
		for _, b := range r.ForVars {
			argv = append(argv, "--variable", b.Name+":"+b.Val.Display())
		}
	}
	if dyn := r.DynValues(); len(dyn) > 0 {
		argv = append(argv, "--variable", "MEDUSA_DYNAMIC:"+displayBindings(dyn))
		for _, b := range dyn {
			argv = append(argv, "--variable", b.Name+":"+b.Val.Display())
		}
	}

	return append(argv, r.SuitePath)
}

func displayList(items []string) string {
	return "[" + strings.Join(items, ", ") + "]"
}

func displayBindings(bindings []value.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		parts = append(parts, b.Name+": "+b.Val.Display())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func forMetadata(bindings []value.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		parts = append(parts, fmt.Sprintf("%s=%q", b.Name, b.Val.Display()))
	}
	return strings.Join(parts, ", ")
}

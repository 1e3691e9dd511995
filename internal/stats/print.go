package stats

import (
	"fmt"
	"io"
	"strings"
)

// Selections accepted by Print.
var selections = []string{"all", "deps", "dynamic", "static", "stages", "suites", "tags", "totals"}

// Print writes the chosen comma-separated selection of stats sections.
func Print(w io.Writer, s *Stats, selection string) error {
	var deps, dynamic, static, stages, suites, tags, totals bool

	for _, sel := range strings.Split(selection, ",") {
		switch strings.TrimSpace(sel) {
		case "all":
			deps, dynamic, static, stages, suites, tags, totals = true, true, true, true, true, true, true
		case "deps":
			deps = true
		case "dynamic":
			dynamic = true
		case "static":
			static = true
		case "stages":
			stages = true
		case "suites":
			suites = true
		case "tags":
			tags = true
		case "totals":
			totals = true
		default:
			return fmt.Errorf("unknown value in selection of stats: '%s' (expected one of %s)",
				sel, strings.Join(selections, ", "))
		}
	}

	if totals {
		printTotals(w, s)
	}
	if stages {
		printStages(w, s)
	}
	if tags {
		printTags(w, s)
	}
	if suites {
		printSuites(w, s)
	}
	if deps {
		printDeps(w, s)
	} else {
		if dynamic {
			printDynamic(w, s)
		}
		if static {
			printStatic(w, s)
		}
	}
	return nil
}

func printTotals(w io.Writer, s *Stats) {
	printTitle(w, "Totals")
	total := make(map[string]int)
	for dep := range s.StaticCnt {
		total[dep]++
	}
	for dep := range s.DynamicCnt {
		total[dep]++
	}
	fmt.Fprintln(w, "Stages:", len(s.Stages))
	fmt.Fprintln(w, "Suites:", s.NRuns)
	fmt.Fprintln(w, "Tests:", s.NTests)
	fmt.Fprintln(w, "Tags:", len(s.TagCnt))
	fmt.Fprintln(w, "Deps total:", len(total))
	fmt.Fprintln(w, "  static:", len(s.StaticCnt))
	fmt.Fprintln(w, "  dynamic:", len(s.DynamicCnt))
	fmt.Fprintln(w)
}

func printStages(w io.Writer, s *Stats) {
	printTitle(w, "Stages")
	for _, name := range s.stageNames() {
		st := s.Stages[name]
		fmt.Fprintf(w, "%s: %s, %s\n", name, fmtCount(len(st.Runs), "Suite"), fmtCount(st.NTests, "Test"))
	}
	fmt.Fprintln(w)
}

func printTags(w io.Writer, s *Stats) {
	printTitle(w, "Tags")
	for _, tag := range sortedKeys(s.TagCnt) {
		fmt.Fprintf(w, "%s: %s\n", tag, fmtCount(s.TagCnt[tag], "Test"))
	}
	fmt.Fprintln(w)
}

func printSuites(w io.Writer, s *Stats) {
	printTitle(w, "Suites")
	for _, name := range s.stageNames() {
		st := s.Stages[name]
		fmt.Fprintln(w, "Stage", name)
		for _, r := range st.Runs {
			if len(r.ForVars) > 0 {
				var vars []string
				for _, b := range r.ForVars {
					vars = append(vars, fmt.Sprintf("%s=%q", b.Name, b.Val.Display()))
				}
				fmt.Fprintf(w, "  %s: %s\n", r.SuitePath, strings.Join(vars, ", "))
			} else {
				fmt.Fprintf(w, "  %s\n", r.SuitePath)
			}
		}
		fmt.Fprintln(w)
	}
}

func printStatic(w io.Writer, s *Stats) {
	printTitle(w, "Static deps")
	for _, dep := range sortedKeys(s.StaticCnt) {
		fmt.Fprintf(w, "  %s: %s\n", dep, fmtCount(s.StaticCnt[dep], "Suite"))
	}
	fmt.Fprintln(w)
}

func printDynamic(w io.Writer, s *Stats) {
	printTitle(w, "Dynamic deps")
	for _, dep := range sortedKeys(s.DynamicCnt) {
		fmt.Fprintf(w, "  %s: %s\n", dep, fmtCount(s.DynamicCnt[dep], "Suite"))
	}
	fmt.Fprintln(w)
}

func printDeps(w io.Writer, s *Stats) {
	printTitle(w, "Deps")
	total := make(map[string]int)
	for dep, n := range s.StaticCnt {
		total[dep] += n
	}
	for dep, n := range s.DynamicCnt {
		total[dep] += n
	}
	for _, dep := range sortedKeys(total) {
		fmt.Fprintf(w, "%s: %s (static: %d, dynamic: %d)\n",
			dep, fmtCount(total[dep], "Suite"), s.StaticCnt[dep], s.DynamicCnt[dep])
	}
	fmt.Fprintln(w)
}

func printTitle(w io.Writer, title string) {
	const width = 40
	fill := width - len(title) - 2
	before := fill / 2
	after := fill - before
	fmt.Fprintln(w, strings.Repeat("=", before), title, strings.Repeat("=", after))
}

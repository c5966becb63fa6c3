//go:build ignore

// Compares two `go test -bench` output files and exits nonzero when a
// benchmark regressed. Typical use:
//
//	go test -bench=. -benchmem -run='^$' ./... > current.txt
//	go run scripts/bench-compare.go current.txt baseline.txt
//
// A benchmark counts as regressed when its ns/op grew by more than
// -threshold relative to the baseline.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
)

const improvementCutoff = 0.10

var (
	outputJSON = flag.Bool("json", false, "Emit the report as JSON")
	threshold  = flag.Float64("threshold", 0.20, "Relative ns/op growth that counts as a regression")
	verbose    = flag.Bool("verbose", false, "List unchanged and unmatched benchmarks too")
	failHard   = flag.Bool("fail", true, "Exit 1 when a regression is found")
)

// benchLine matches `go test -bench` result lines:
// BenchmarkName-N  iterations  ns/op  [B/op]  [allocs/op]
var benchLine = regexp.MustCompile(`^(Benchmark\S+)\s+(\d+)\s+([\d.]+)\s+ns/op(?:\s+(\d+)\s+B/op)?(?:\s+(\d+)\s+allocs/op)?`)

type benchResult struct {
	nsPerOp     float64
	allocsPerOp int
}

type comparison struct {
	Name        string  `json:"name"`
	Current     float64 `json:"current_ns_per_op"`
	Baseline    float64 `json:"baseline_ns_per_op,omitempty"`
	DeltaPct    float64 `json:"delta_percent"`
	AllocsDelta int     `json:"allocs_delta,omitempty"`
	Status      string  `json:"status"`
}

type report struct {
	Total        int          `json:"total"`
	Regressions  int          `json:"regressions"`
	Improvements int          `json:"improvements"`
	Unchanged    int          `json:"unchanged"`
	OnlyCurrent  int          `json:"only_in_current"`
	OnlyBaseline int          `json:"only_in_baseline"`
	Comparisons  []comparison `json:"comparisons"`
	Failed       bool         `json:"failed"`
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <current.txt> <baseline.txt>\n\nOptions:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 2 {
		flag.Usage()
		os.Exit(1)
	}

	current, err := parseBenchFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse %s: %v\n", flag.Arg(0), err)
		os.Exit(1)
	}
	baseline, err := parseBenchFile(flag.Arg(1))
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse %s: %v\n", flag.Arg(1), err)
		os.Exit(1)
	}

	rep := compare(current, baseline)

	if *outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			fmt.Fprintf(os.Stderr, "encode report: %v\n", err)
			os.Exit(1)
		}
	} else {
		printReport(rep)
	}

	if *failHard && rep.Failed {
		os.Exit(1)
	}
}

func parseBenchFile(path string) (map[string]benchResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	results := make(map[string]benchResult)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		m := benchLine.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		r := benchResult{}
		r.nsPerOp, _ = strconv.ParseFloat(m[3], 64)
		if m[5] != "" {
			r.allocsPerOp, _ = strconv.Atoi(m[5])
		}
		results[m[1]] = r
	}
	return results, scanner.Err()
}

func compare(current, baseline map[string]benchResult) *report {
	rep := &report{}

	names := make([]string, 0, len(current))
	for name := range current {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		curr := current[name]
		rep.Total++

		base, ok := baseline[name]
		if !ok {
			rep.OnlyCurrent++
			if *verbose {
				rep.Comparisons = append(rep.Comparisons, comparison{
					Name: name, Current: curr.nsPerOp, Status: "new",
				})
			}
			continue
		}

		delta := 0.0
		if base.nsPerOp > 0 {
			delta = (curr.nsPerOp - base.nsPerOp) / base.nsPerOp
		}

		c := comparison{
			Name:        name,
			Current:     curr.nsPerOp,
			Baseline:    base.nsPerOp,
			DeltaPct:    delta * 100,
			AllocsDelta: curr.allocsPerOp - base.allocsPerOp,
		}
		switch {
		case delta > *threshold:
			c.Status = "regression"
			rep.Regressions++
			rep.Failed = true
		case delta < -improvementCutoff:
			c.Status = "improved"
			rep.Improvements++
		default:
			c.Status = "ok"
			rep.Unchanged++
		}

		if c.Status != "ok" || *verbose {
			rep.Comparisons = append(rep.Comparisons, c)
		}
	}

	for name := range baseline {
		if _, ok := current[name]; !ok {
			rep.OnlyBaseline++
		}
	}

	return rep
}

func printReport(rep *report) {
	fmt.Printf("benchmarks: %d  regressions: %d  improvements: %d  unchanged: %d\n",
		rep.Total, rep.Regressions, rep.Improvements, rep.Unchanged)
	if rep.OnlyCurrent > 0 || rep.OnlyBaseline > 0 {
		fmt.Printf("unmatched: %d new, %d missing from current\n",
			rep.OnlyCurrent, rep.OnlyBaseline)
	}

	if len(rep.Comparisons) > 0 {
		fmt.Println()
		fmt.Printf("%-56s %12s %12s %9s\n", "BENCHMARK", "CURRENT", "BASELINE", "DELTA")
		for _, c := range rep.Comparisons {
			if c.Baseline > 0 {
				fmt.Printf("%-56s %10.0fns %10.0fns %+8.1f%% %s\n",
					clipName(c.Name, 56), c.Current, c.Baseline, c.DeltaPct, c.Status)
			} else {
				fmt.Printf("%-56s %10.0fns %12s %9s %s\n",
					clipName(c.Name, 56), c.Current, "-", "-", c.Status)
			}
		}
	}

	fmt.Println()
	if rep.Failed {
		fmt.Printf("FAIL: %d benchmark(s) slowed down by more than %.0f%%\n",
			rep.Regressions, *threshold*100)
	} else {
		fmt.Println("ok: no significant regressions")
	}
}

func clipName(name string, max int) string {
	if len(name) <= max {
		return name
	}
	return name[:max-3] + "..."
}

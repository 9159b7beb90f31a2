// Command overlap computes camera overlap boundary strips from LiDAR
// sweeps, stores them, and answers overlap queries.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/banshee-data/overlap/internal/config"
	"github.com/banshee-data/overlap/internal/pipeline"
	"github.com/banshee-data/overlap/internal/query"
	"github.com/banshee-data/overlap/internal/version"
)

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	command := flag.Arg(0)
	args := flag.Args()[1:]

	var err error
	switch command {
	case "build":
		err = handleBuild(args, os.Stdout)
	case "query":
		err = handleQuery(args, os.Stdout)
	case "serve":
		err = handleServe(args)
	case "version":
		fmt.Printf("overlap %s\n", version.Info())
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "overlap %s: %v\n", command, err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`overlap - camera overlap boundaries for a LiDAR-camera rig

Usage: overlap <command> [options]

Commands:
  build      Run the strip pipeline on dataset frames and store the results
  query      Test image points against a stored run
  serve      Serve the overlap API and debug pages
  version    Show version
  help       Show this help message

Common Flags:
  -config <file>   Tuning JSON (defaults apply to omitted keys)
  -db <file>       SQLite database (default: overlap.db)
  -v               Enable diagnostic logging
  -trace           Enable per-strip and per-point trace logging

Examples:
  overlap build -data /data/ONCE -seq 000076 -frame 1616343528200 -plots plots
  overlap build -data /data/ONCE -split train
  overlap query -seq 000076 -frame 1616343528200 -camera cam01 -points 700,400
  overlap query -server http://localhost:8080 -run <run-id> -camera cam01 -points 10,10;90,10;90,60;10,60
  overlap serve -listen :8080 -data /data/ONCE -seq 000076`)
}

// commonFlags are shared by every subcommand.
type commonFlags struct {
	configPath string
	dbPath     string
	verbose    bool
	trace      bool
}

func (c *commonFlags) register(flags *flag.FlagSet) {
	flags.StringVar(&c.configPath, "config", "", "Tuning config JSON file")
	flags.StringVar(&c.dbPath, "db", "overlap.db", "SQLite database path")
	flags.BoolVar(&c.verbose, "v", false, "Enable diagnostic logging")
	flags.BoolVar(&c.trace, "trace", false, "Enable trace logging")
}

// tuning loads the -config file, or an empty config when none is given.
func (c *commonFlags) tuning() (*config.TuningConfig, error) {
	if c.configPath == "" {
		return config.EmptyTuningConfig(), nil
	}
	return config.LoadTuningConfig(c.configPath)
}

// setupLogging routes the ops stream to w always, diag with -v and trace
// with -trace.
func (c *commonFlags) setupLogging(w io.Writer) {
	var diag, trace io.Writer
	if c.verbose || c.trace {
		diag = w
	}
	if c.trace {
		trace = w
	}
	pipeline.SetLogWriters(w, diag, trace)
	query.SetLogWriters(w, diag, trace)
}

// parseCameras splits a comma-separated camera list.
func parseCameras(s string) []string {
	var out []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// parsePoints parses "u,v;u,v;..." into image points.
func parsePoints(s string) ([][2]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("no points given")
	}
	var out [][2]float64
	for _, pair := range strings.Split(s, ";") {
		parts := strings.Split(pair, ",")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid point '%s': want u,v", pair)
		}
		var p [2]float64
		for i, part := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid point '%s': %w", pair, err)
			}
			p[i] = v
		}
		out = append(out, p)
	}
	return out, nil
}

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	persistlog "tilegen.ai/internal/persistence/log"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "db":
			dbCmd(os.Args[2:])
			return
		case "log":
			logCmd(os.Args[2:])
			return
		case "runs":
			remoteRunsCmd(os.Args[2:])
			return
		case "reseed":
			reseedCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

// listCmd prints the run log files under the data directory.
func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	files, err := persistlog.RunFiles(*dataDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, f := range files {
		fmt.Println(filepath.Base(f))
	}
}

func logCmd(args []string) {
	fs := flag.NewFlagSet("log", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	file := fs.String("file", "", "single run log file (optional; defaults to every file under -data)")
	preset := fs.String("preset", "", "preset name filter")
	_ = fs.Parse(args)

	var files []string
	if p := strings.TrimSpace(*file); p != "" {
		files = []string{p}
	} else {
		var err error
		files, err = persistlog.RunFiles(*dataDir)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read:", err)
			os.Exit(1)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	for _, f := range files {
		recs, err := persistlog.ReadRuns(f)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", f, err)
			os.Exit(1)
		}
		for _, r := range recs {
			if *preset != "" && r.Preset != *preset {
				continue
			}
			_ = enc.Encode(r)
		}
	}
}

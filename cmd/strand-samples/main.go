// strand-samples prepares a directory of paired FASTQ files for a run: it
// writes per-job-type samplesheets and the run_manifest.json the orchestrator
// consumes. Uploading the directory to the artifact store is a separate step.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/strand/internal/common"
	"github.com/ternarybob/strand/internal/samples"
)

var (
	samplesDir  = flag.String("samples-dir", "", "Directory containing *.fastq.gz files (required)")
	inputBase   = flag.String("input-base", "", "Artifact store URI prefix where the samples directory will be uploaded (required)")
	outputBase  = flag.String("output-base", "", "Artifact store URI prefix for run outputs (required)")
	runLabel    = flag.String("run-label", "", "Run label (defaults to the samples directory name)")
	jobTypeList = flag.String("job-types", "mag,metatdenovo", "Comma-separated job types to generate samplesheets for")
	showVersion = flag.Bool("version", false, "Print version information")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("strand-samples version %s\n", common.GetVersion())
		os.Exit(0)
	}

	if *samplesDir == "" || *inputBase == "" || *outputBase == "" {
		fmt.Fprintln(os.Stderr, "ERROR: -samples-dir, -input-base and -output-base are required")
		flag.Usage()
		os.Exit(2)
	}

	dir, err := filepath.Abs(*samplesDir)
	if err != nil {
		fatalf("invalid samples directory: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		fatalf("samples directory not accessible: %v", err)
	}

	label := *runLabel
	if label == "" {
		label = filepath.Base(dir)
	}

	var jobTypes []string
	for _, jt := range strings.Split(*jobTypeList, ",") {
		jt = strings.TrimSpace(jt)
		if jt != "" {
			jobTypes = append(jobTypes, strings.ToLower(jt))
		}
	}
	if len(jobTypes) == 0 {
		fatalf("no job types requested")
	}

	pairs, err := samples.FindPairs(dir)
	if err != nil {
		fatalf("failed to scan samples directory: %v", err)
	}
	if len(pairs) == 0 {
		fatalf("no paired FASTQ files found (*.fastq.gz with _R1/_R2 or _1/_2)")
	}
	fmt.Printf("Found %d sample pair(s)\n", len(pairs))

	for _, jobType := range jobTypes {
		path, err := samples.WriteSamplesheet(dir, jobType, *inputBase, label, pairs)
		if err != nil {
			fatalf("failed to write samplesheet for %s: %v", jobType, err)
		}
		fmt.Printf("Wrote %s\n", path)
	}

	manifestPath, err := samples.WriteManifest(dir, label, *inputBase, *outputBase, jobTypes)
	if err != nil {
		fatalf("failed to write manifest: %v", err)
	}
	fmt.Printf("Wrote %s\n", manifestPath)
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "ERROR: "+format+"\n", args...)
	os.Exit(1)
}

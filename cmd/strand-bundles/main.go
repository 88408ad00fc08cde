// strand-bundles uploads nf-core workflow bundle ZIPs to the artifact store.
// Each file must be named nf-core-<workflow>_<version>.zip; the workflow name
// embedded in the file name selects the destination prefix.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ternarybob/strand/internal/bundles"
	"github.com/ternarybob/strand/internal/common"
)

var (
	baseURL     = flag.String("artifacts-base", "", "Artifact store base URL (required; or STRAND_ARTIFACTS_BASE_URL)")
	timeout     = flag.Duration("timeout", 5*time.Minute, "HTTP timeout per upload attempt")
	showVersion = flag.Bool("version", false, "Print version information")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("strand-bundles version %s\n", common.GetVersion())
		os.Exit(0)
	}

	base := *baseURL
	if base == "" {
		base = os.Getenv("STRAND_ARTIFACTS_BASE_URL")
	}
	if base == "" {
		fmt.Fprintln(os.Stderr, "ERROR: -artifacts-base is required")
		flag.Usage()
		os.Exit(2)
	}

	paths := flag.Args()
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "ERROR: at least one bundle ZIP is required")
		flag.Usage()
		os.Exit(2)
	}

	logger := common.GetLogger()
	uploader := bundles.NewUploader(base, *timeout, logger)

	uploaded, err := uploader.UploadAll(context.Background(), paths)
	for _, dest := range uploaded {
		fmt.Printf("Uploaded %s\n", dest)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

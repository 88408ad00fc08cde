package common

import (
	"fmt"

	"github.com/ternarybob/banner"
)

// PrintBanner displays the startup banner with build metadata
func PrintBanner(version string) {
	banner.PrintSimple("Strand", version)
	if GitCommit != "unknown" {
		fmt.Printf("  build %s commit %s\n", Build, GitCommit)
	}
}

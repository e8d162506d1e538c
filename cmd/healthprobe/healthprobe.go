// The one-shot probe client shipped into runtime images.
//
// Issues a single GET against the service's health endpoint and exits 0 on
// success, 1 on failure, which is exactly the contract container
// supervisors expect from an embedded health check command. Kept free of
// CLI frameworks so the binary stays small inside the image.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/valutlabs/forge/internal/probe"
)

func main() {
	url := flag.String("url", "http://localhost:8000/health", "health endpoint to probe")
	timeout := flag.Duration("timeout", probe.DefaultTimeout, "probe timeout")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	checker := &probe.HTTPChecker{URL: *url}
	if err := checker.Check(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

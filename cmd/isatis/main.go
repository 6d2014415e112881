package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes
const (
	ExitSuccess  = 0 // Every check passed
	ExitQCFailed = 1 // One or more checks fell outside the tolerance band
	ExitError    = 2 // Configuration or runtime error
)

// QCFailureError indicates that the run was processed, but one or more
// samples still fall outside the tolerance band and --fail-on-qc was set.
type QCFailureError struct {
	Failed int
	Total  int
}

func (e *QCFailureError) Error() string {
	return fmt.Sprintf("QC failed: %d of %d checks outside tolerance", e.Failed, e.Total)
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		var qcErr *QCFailureError
		if errors.As(err, &qcErr) {
			os.Exit(ExitQCFailed)
		}

		os.Exit(ExitError)
	}
}

package signalhandler

import (
	"os"
	"os/signal"
	"runtime"
	"syscall"
)

// SetupHandler installs SIGINT/SIGTERM handling. The flush hook runs
// before exit so already-computed cache contents survive an interrupted
// run; un-flushed work is lost by design.
func SetupHandler(flush func()) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		if flush != nil {
			flush()
		}
		os.Exit(1)
	}()
}

// GetOptimalProcs returns the worker count to use for per-image
// processing. Leaves a quarter of the CPUs free for the OCR and
// exiftool subprocesses the pipeline spawns.
func GetOptimalProcs() int {
	numCPU := runtime.NumCPU()

	maxProcs := (numCPU * 3) / 4
	if maxProcs < 1 {
		maxProcs = 1
	}

	return maxProcs
}

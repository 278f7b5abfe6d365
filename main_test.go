package servant

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"testing"
)

// testWorkerEnv marks a re-executed test binary as a worker process
const testWorkerEnv = "GO_SERVANT_TEST_WORKER"

func TestMain(m *testing.M) {
	if os.Getenv(testWorkerEnv) == "1" && len(os.Args) == 3 {
		os.Exit(runTestWorker(os.Args[1:]))
	}
	os.Exit(m.Run())
}

func runTestWorker(args []string) int {
	name, port, err := ParseWorkerArgs(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := RunWorker(ctx, DefaultServices(), name, port); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

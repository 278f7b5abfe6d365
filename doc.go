// Package servant supervises singleton, named worker processes on a single
// host without a daemon or lock files.
//
// Every worker is spawned with one environment variable, its tag:
//
//	THEREISASERVANT=<name>_p<port>p_
//
// Discovery scans the process table for that variable, so a worker started
// by any process, including one that has since exited, is found again by
// name. The Supervisor type attaches to such a worker or spawns a new one:
//
//	s, err := servant.Create(ctx, "pkg.mod.DemoService")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Invoke a function on the worker
//	out, err := s.Call(ctx, "compute", servant.Args{"values": []int{1, 2, 3}})
//
//	// Stop it and wait for the process to exit
//	err = s.Terminate(ctx)
//
// Spawned workers run the current executable with two arguments, the
// service name and the port. A program that supervises its own workers
// therefore checks for those arguments first and serves instead:
//
//	if name, port, err := servant.ParseWorkerArgs(os.Args[1:]); err == nil {
//	    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	    defer stop()
//	    return servant.RunWorker(ctx, servant.DefaultServices(), name, port)
//	}
//
// # Discovery Sources
//
// Scanner reads the process table through procfs and is the default. RunDir
// keeps one record file per spawned worker in a directory and can Watch it
// for changes. Both implement Source and can back a Registry or a
// Supervisor through WithDiscovery.
//
// # Races
//
// Create checks for a running worker and then spawns one; the two steps are
// not atomic. Two concurrent Creates for an unclaimed name may both spawn.
// A Registry always treats the smallest pid carrying a tag as canonical and
// reports the others through Duplicates.
//
// # Manager for Bulk Operations
//
// The Manager type creates, queries and terminates many services
// concurrently with bounded parallelism and per-operation timeouts:
//
//	manager := servant.NewManager(
//	    servant.WithConcurrency(5),
//	    servant.WithSupervisorOptions(servant.WithStrictReady(true)),
//	)
//	sups, err := manager.Create(ctx, "web.Frontend", "db.Cache")
package servant

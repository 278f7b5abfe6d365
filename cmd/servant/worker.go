package main

import (
	servant "github.com/axondata/go-servant"
	"github.com/axondata/go-servant/internal/workerfx"
)

// runWorker serves the named service on port until SIGINT or SIGTERM
func runWorker(args []string) error {
	name, port, err := servant.ParseWorkerArgs(args)
	if err != nil {
		return err
	}
	app := workerfx.New(workerfx.Params{
		Name:    name,
		Port:    port,
		Metrics: cfg.Metrics,
	}, servant.DefaultServices(), logger)
	if err := app.Err(); err != nil {
		return err
	}
	app.Run()
	return nil
}

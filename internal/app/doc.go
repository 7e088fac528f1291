// Package app wires one audit run: configuration, the JSON logger,
// OpenTelemetry providers and the operations manager with its six steps.
//
// Typical use from a command:
//
//	application, err := app.NewApplication(cfg, nil)
//	if err != nil {
//	    return err
//	}
//	defer application.Shutdown(ctx)
//	resp, err := application.Run(ctx)
//
// Inspect runs schema inference alone and is used by the inspect command.
package app

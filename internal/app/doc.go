// Package app wires the process-wide pieces every command needs.
//
// # Initialization Flow
//
//	1. Load configuration from the environment and an optional .env file
//	2. Initialize the JSON logger
//	3. Initialize metrics and tracing
//	4. Build the pipeline, with publication when it is configured
//
// # Usage
//
//	a, err := app.New(ctx, *envFile)
//	if err != nil {
//	    os.Exit(app.ExitConfig)
//	}
//	defer a.Close(ctx)
//	p, err := a.Pipeline(ctx)
package app

// Package app assembles the tag cache, spelling index, page client, browser
// harvester, and fetch orchestrator from configuration.
//
// Key Components:
//   - App: owns every long-lived collaborator and shuts them down in order
//   - New: loads the store, builds the index, and starts the fetcher
//
// Example Usage:
//
//	a, err := app.New(cfg, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer a.Close()
//	req, err := a.Fetcher.Fetch(ctx, "cat_ears")
package app

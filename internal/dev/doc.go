// Package dev runs the development server.
//
// The server keeps an esbuild watch session alive through a Builder, serves
// the pages rendered by the last build from memory and everything else from
// the content base, and tells connected browsers to reload after every
// successful build.
//
// # Architecture
//
//   - Builder: compiles and recompiles when scripts or stylesheets change
//   - Watcher: reports changes to the page templates matched by the watch
//     globs, which esbuild does not see, and triggers a rebuild
//   - PageStore: rendered pages, keyed by URL path
//   - ReloadServer: notifies browsers via WebSocket
//
// # Usage
//
//	srv, err := dev.NewServer(dev.ServerOptions{
//	    Config: cfg,
//	    Logger: log,
//	})
//	if err != nil {
//	    return err
//	}
//	return srv.Start(ctx)
//
// # Hot Reload Protocol
//
// The browser connects to /_sitepack/reload via WebSocket.
// Messages are JSON-encoded:
//
//	{"type": "reload"}                // Triggers full page reload
//	{"type": "error", "error": "..."} // Shows error overlay
//	{"type": "clear"}                 // Clears error overlay
//
// Metrics are served in Prometheus format at /_sitepack/metrics.
package dev

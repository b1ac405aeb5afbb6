// Package mcpserver exposes the container launcher as Model Context Protocol tools.
//
// Two tools are registered: run_code, which runs a snippet through a
// sandbox.Executor and returns its captured output as JSON, and
// list_runtimes. The server speaks stdio or streamable HTTP; in HTTP mode
// Prometheus metrics are served next to the MCP endpoint.
//
// Usage:
//
//	server, err := mcpserver.New(cfg, logger, launcher, registry)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = server.ServeStdio() // or server.ServeHTTP()
package mcpserver

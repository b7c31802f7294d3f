// Package acp implements the Agent Client Protocol: a bidirectional
// JSON-RPC 2.0 protocol, carried over a Content-Length framed byte stream,
// that lets an editor ("client") and a local coding agent ("agent")
// exchange requests, responses, and streaming notifications.
//
// The package owns the connection protocol engine — frame codec, message
// classifier, schema codec, pending-request table, dispatcher, session
// registry, and connection controller — described in the package's design
// documentation. Callers supply a Handler implementation that also
// implements the per-operation interfaces (Initializer, Prompter, FSReader,
// ...) for the operations their role answers; StartAgent and StartClient
// wire it to the process's own stdio or a spawned agent's stdio.
package acp

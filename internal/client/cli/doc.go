// Package cli provides the interactive CodeX Notes command-line client.
//
// It wires configuration, the local store, the session, the sync engine and
// the sharing flow, and runs a REPL that works offline. A background watcher
// probes the backend and starts a sync pass whenever the client comes back
// online; join links handed over by the OS are accepted as they arrive, and
// change events are mirrored to an optional local UI bridge.
//
// The REPL is started via App.Root(ctx), which blocks until the user exits.
// See App, StartOnlineStatusWatcher, and runREPL for details.
package cli

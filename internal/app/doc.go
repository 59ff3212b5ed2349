// Package app wires the namespace, the core modules, logging and the call
// file executor into one application, decoupled from any specific
// entrypoint like a CLI or server.
package app

// Package registry provides a generic, thread-safe name to item registry.
// Names are unique: registering a name twice is an error. The command
// registry of the expansion engine is built on top of it.
package registry

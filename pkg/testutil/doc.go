// Package testutil provides file fixtures for metaini tests. Every helper
// fails the test on error and writes below t.TempDir(), so fixtures are
// removed when the test completes.
package testutil

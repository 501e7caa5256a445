// Package component defines the lifecycle contract shared by the server's
// long-lived parts and a Registry that starts them in order and stops them
// in reverse.
package component

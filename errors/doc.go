// Package errors provides the AppError type shared by peerkit packages and
// its mapping to HTTP responses.
package errors

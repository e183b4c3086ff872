// Package api handles incoming HTTP requests of the local control surface,
// request validation and response formatting. It adapts HTTP calls from the
// editor add-on to the generation, result and status operations.
package api

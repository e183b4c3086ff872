// Package service implements the user-facing operations of the bridge:
// requesting generations, listing jobs, and saving, importing or
// discarding results. Methods are called from request goroutines and run
// every document access on the main context.
package service

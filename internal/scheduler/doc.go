// Package scheduler provides the main context: a single goroutine that owns
// the mutable document state and runs recurring callbacks and posted
// closures strictly one at a time. Registry layers named, idempotent
// callback registration on top of it.
package scheduler

// Package generation dispatches text-to-3D requests to the remote generation
// service and tracks submitted jobs until they finish. At most Capacity jobs
// are in flight at once; the rest wait in an unbounded FIFO. All state
// transitions happen in the dispatcher tick on the main context.
package generation

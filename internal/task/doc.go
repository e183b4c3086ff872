// Package task provides the background work primitives shared by the
// download and image pipelines: an unbounded synchronized FIFO and a lazily
// started single-consumer worker that drains it and exits when it runs dry.
package task

// Package domain contains the entities of the bridge: generation jobs, their
// results and previews, the job status lifecycle and the errors shared across
// packages. It has no dependencies on transport or storage.
package domain

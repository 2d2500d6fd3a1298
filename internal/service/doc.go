// Package service wires the pipeline together: observation plan in, job
// expansion, bounded parallel execution, catalog merge/dedup or image
// simulation, intermediate-file cleanup.
package service

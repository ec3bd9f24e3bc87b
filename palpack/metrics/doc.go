// Package metrics records Prometheus metrics for one palpack run.
//
// palpack is a short-lived command, so nothing is scraped. Instead a
// [Recorder] collects into its own registry and writes it out in the text
// exposition format for the node_exporter textfile collector:
//
//	rec := metrics.NewRecorder()
//	opts.Progress = palpack.MultiProgress(opts.Progress, rec.Progress())
//	...
//	rec.ObserveOperation("encode", time.Since(start), err)
//	rec.WriteTextfile("/var/lib/node_exporter/palpack.prom")
//
// Metrics:
//   - palpack_entries_processed_total: entries finished per phase
//   - palpack_container_entries: entries in the last container handled
//   - palpack_container_stored_bytes / palpack_container_source_bytes: payload
//     totals before and after decompression
//   - palpack_operation_duration_seconds: wall time of the last operation
//   - palpack_operation_errors_total: failures by operation and error code
package metrics

// Package internaldefs holds the metric name tables and histogram bucket
// layout shared by the exporter implementations.
//
// Both the Prometheus and OTel exporters read these definitions, so a metric
// rename or bucket change lands in every exposition format at once. The
// package maps engine metric ids to wire names; it performs no I/O and must
// not import any exporter package.
package internaldefs

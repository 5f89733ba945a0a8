// Package internaldefs holds the shared metric definitions used by the
// Prometheus and OTel exporters. It is internal to the exporters and not a
// stable API.
package internaldefs

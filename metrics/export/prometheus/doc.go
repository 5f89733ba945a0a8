// Package prometheus renders goSession engine metrics in Prometheus text
// exposition format without taking a dependency on the Prometheus client.
package prometheus

// Package server mounts the local API, the event stream, and the Prometheus
// endpoint on one gin router and runs it until its context ends.
package server

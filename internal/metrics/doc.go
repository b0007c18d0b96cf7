// Package metrics owns the Prometheus collectors of the arena servers.
//
// Every method is safe on a nil *Registry, so components can be built
// without metrics in tests.
package metrics

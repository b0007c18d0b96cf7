// Package routes holds the route classification table shared by the edge
// gate and the client redirect controller, and the Decision type both
// layers produce.
package routes

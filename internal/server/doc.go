// Package server exposes the HTTP boundary: the charge-check endpoint
// consumed by the owning platform, a recent-charges listing, and a
// health probe.
package server

// Package version provides build and version information.
package version

// Version is the current API version.
const Version = "1.0.0"

// Milestones:
// 1.0.0 - Sidereal positions for the nine grahas, batch endpoint, Horizons and analytic engines

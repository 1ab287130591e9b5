package flarebypass

import "os"

// Build-time variables - inject via ldflags
// Example: go build -ldflags "-X flarebypass.solverURL=http://localhost:20080"
var (
	solverURL   string // -X flarebypass.solverURL=...
	proxiesFile string // -X flarebypass.proxiesFile=...
)

// GetSolverURL returns the solver base URL (build-time or env fallback).
func GetSolverURL() string {
	if solverURL != "" {
		return solverURL
	}
	return os.Getenv("SOLVER_URL")
}

// GetProxiesFile returns the proxy list path (build-time or env fallback).
// Empty means no proxies.
func GetProxiesFile() string {
	if proxiesFile != "" {
		return proxiesFile
	}
	return os.Getenv("PROXIES_FILE")
}

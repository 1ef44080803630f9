package version

import (
	"runtime"
	"time"
)

// Overridden at build time via -ldflags "-X github.com/thewebbaby/site/internal/version.Version=...".
var (
	Version   = "dev"                           // ex: v1.4.0
	Commit    = "none"                          // ex: abcd123
	BuildDate = time.Now().Format(time.RFC3339) // ex: 2025-09-07T12:00:00Z
	GoVersion = runtime.Version()               // go version
)

// UserAgent builds the outbound User-Agent for a given client component.
func UserAgent(component string) string {
	return "Webbaby" + component + "/" + Version + " (+https://thewebbaby.onrender.com)"
}

package app

// Build information set with -ldflags "-X .../internal/app.BuildVersion=...".
// Printed by headlinedeck -version.
var (
	BuildVersion = "0.0.0-dev"
	BuildCommit  = "unknown"
	BuildDate    = "unknown"
)

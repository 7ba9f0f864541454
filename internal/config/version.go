package config

// Build metadata, overridden at link time:
//
//	go build -ldflags "-X github.com/edirooss/logickeys/internal/config.Version=v1.2.0"
var (
	Version   = "dev"
	GitCommit = "none"
	BuildDate = "unknown"
)

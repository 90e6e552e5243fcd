package constants

// Deployment environments recognised in env.env.
const (
	EnvLocal   = "local"
	EnvDevelop = "develop"
)

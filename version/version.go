package version

var (
	Version  = "dev"
	Revision = "unknown"
)

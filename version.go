package svcctl

// Version is the current version of the go-svcctl library
const Version = "1.0.0"

// VersionInfo contains detailed version information
type VersionInfo struct {
	// Version is the semantic version
	Version string
	// Protocol is the remote interface this library speaks
	Protocol string
	// InterfaceVersion is the version of that interface
	InterfaceVersion string
}

// GetVersion returns the current version information
func GetVersion() VersionInfo {
	return VersionInfo{
		Version:          Version,
		Protocol:         "svcctl",
		InterfaceVersion: "2.0",
	}
}

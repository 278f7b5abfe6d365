package servant

// Version is the current version of the go-servant library
const Version = "0.3.0"

// VersionInfo contains detailed version information
type VersionInfo struct {
	// Version is the semantic version
	Version string
	// TagMarker is the environment variable workers are tagged with
	TagMarker string
	// Scanning indicates whether process table discovery works on this platform
	Scanning bool
}

// GetVersion returns the current version information
func GetVersion() VersionInfo {
	return VersionInfo{
		Version:   Version,
		TagMarker: TagMarker,
		Scanning:  scanSupported,
	}
}

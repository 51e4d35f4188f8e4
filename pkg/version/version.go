package version

// Version is the current application version.
// This is a var (not const) so it can be overridden at build time via:
//
//	go build -ldflags "-X github.com/vanderheijden86/roadwork/pkg/version.Version=v1.2.3"
var Version = "v0.3.0"

// String returns the version with the program name, as printed by `rw version`.
func String() string {
	return "rw " + Version
}

package version

import "fmt"

// go ldflags
var Version string    // version
var Commit string     // git commit id
var CommitDate string // git commit date
var TreeState string  // git tree state

// String formats the build stamp for --version output.
func String() string {
	v := Version
	if v == "" {
		v = "dev"
	}
	if Commit == "" {
		return v
	}
	return fmt.Sprintf("%s (%s %s)", v, Commit, CommitDate)
}

package microbiomisc

import (
	"fmt"
	"os"
	"runtime/debug"
)

type BuildInfo struct {
	Tool       string
	GoVersion  string
	Commit     string
	CommitTime string
	Dirty      bool
}

func (b BuildInfo) String() string {
	commit := b.Commit
	if commit == "" {
		commit = "an unknown commit"
	}

	suffix := ""
	if b.Dirty {
		suffix = " The working tree was dirty at build time."
	}

	return fmt.Sprintf("%s was compiled with %s from %s (%s).%s", b.Tool, b.GoVersion, commit, b.CommitTime, suffix)
}

// ReadBuildInfo extracts version-control provenance embedded by the Go
// toolchain, for tools that want to report exactly which code produced an
// output file.
func ReadBuildInfo() BuildInfo {
	out := BuildInfo{}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return out
	}

	out.Tool = bi.Path
	out.GoVersion = bi.GoVersion
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			out.Commit = s.Value
		case "vcs.time":
			out.CommitTime = s.Value
		case "vcs.modified":
			out.Dirty = s.Value == "true"
		}
	}

	return out
}

// PrintBuildInfo writes the build provenance to stderr, keeping stdout clean
// for data output.
func PrintBuildInfo() {
	fmt.Fprintf(os.Stderr, "%s\n", ReadBuildInfo())
}

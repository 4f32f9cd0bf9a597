package syncgate

import (
	"fmt"

	"github.com/duewell/syncgate/pkg/log"
)

// Version is the current syncgate release.
const Version = "1.0.0"

// MinCompatibleVersion is the oldest release this one can interoperate
// with.
const MinCompatibleVersion = "1.0.0"

// ModuleVersions reports the versions of syncgate and its sub-modules.
func ModuleVersions() map[string]string {
	return map[string]string{
		"syncgate": Version,
		"log":      log.Version,
	}
}

// validateModuleVersions rejects construction when a sub-module lags
// behind its minimum compatible version.
func validateModuleVersions() error {
	checks := []struct {
		name    string
		version string
		min     string
	}{
		{"syncgate", Version, MinCompatibleVersion},
		{"log", log.Version, log.MinCompatibleVersion},
	}

	for _, c := range checks {
		if semverLess(c.version, c.min) {
			return fmt.Errorf("module %s version %s is below minimum compatible version %s",
				c.name, c.version, c.min)
		}
	}

	return nil
}

// semverLess reports whether a orders strictly before b. Versions are
// "major.minor.patch"; unparsable parts read as zero.
func semverLess(a, b string) bool {
	av := parseSemver(a)
	bv := parseSemver(b)
	for i := 0; i < 3; i++ {
		if av[i] != bv[i] {
			return av[i] < bv[i]
		}
	}
	return false
}

func parseSemver(s string) [3]int {
	var v [3]int
	_, _ = fmt.Sscanf(s, "%d.%d.%d", &v[0], &v[1], &v[2])
	return v
}

package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ResolvePath turns a configured path into a usable one. Environment
// variables are substituted, a leading ~ becomes the home directory, and a
// path that is still relative is anchored at base, the directory of the
// config file, when base is set. Command-line paths pass an empty base and
// stay relative to the working directory.
func ResolvePath(path, base string) string {
	if path == "" {
		return ""
	}

	path = os.ExpandEnv(path)
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Clean(path)
		}
		path = filepath.Join(home, path[1:])
	}

	if base != "" && !filepath.IsAbs(path) {
		path = filepath.Join(base, path)
	}
	return filepath.Clean(path)
}

// configDir is the directory relative config paths are resolved against.
func configDir(used string) string {
	if used == "" {
		return ""
	}
	return filepath.Dir(used)
}

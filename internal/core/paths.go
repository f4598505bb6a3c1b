package core

import (
	"os"
	"path/filepath"
)

type Paths struct {
	HomeDir           string
	DataDir           string
	LogFile           string
	HistoryFile       string
	VersionMarkerFile string
	DefaultSocket     string
}

var defaultPaths *Paths

func ensureDefaultPaths() {
	if defaultPaths == nil {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			panic(err)
		}

		defaultPaths = &Paths{
			HomeDir:           homeDir,
			DataDir:           filepath.Join(homeDir, ".dbgcon"),
			LogFile:           filepath.Join(homeDir, ".dbgcon", "dbgcon.log"),
			HistoryFile:       filepath.Join(homeDir, ".dbgcon", "history.db"),
			VersionMarkerFile: filepath.Join(homeDir, ".dbgcon", "schema_marker"),
			DefaultSocket:     filepath.Join(homeDir, ".dbgcon", "console.sock"),
		}

		err = os.MkdirAll(defaultPaths.DataDir, 0755)
		if err != nil {
			panic(err)
		}
	}
}

func HomeDir() string {
	ensureDefaultPaths()
	return defaultPaths.HomeDir
}

func DataDir() string {
	ensureDefaultPaths()
	return defaultPaths.DataDir
}

func LogFile() string {
	ensureDefaultPaths()
	return defaultPaths.LogFile
}

func HistoryFile() string {
	ensureDefaultPaths()
	return defaultPaths.HistoryFile
}

func VersionMarkerFile() string {
	ensureDefaultPaths()
	return defaultPaths.VersionMarkerFile
}

func DefaultSocket() string {
	ensureDefaultPaths()
	return defaultPaths.DefaultSocket
}

// ConfigFile is the console configuration file under the data directory.
func ConfigFile() string {
	ensureDefaultPaths()
	return filepath.Join(defaultPaths.DataDir, "config.yaml")
}

// ResetPaths clears the cached paths, forcing them to be reinitialized.
// This is primarily used for testing purposes.
func ResetPaths() {
	defaultPaths = nil
}

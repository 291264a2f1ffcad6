package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// GetDataDirectory returns the platform-specific data directory
// Linux: /var/lib/serman
// Windows: %ProgramData%\SerMan
func GetDataDirectory() string {
	return dataDirectoryFor(runtime.GOOS)
}

func dataDirectoryFor(goos string) string {
	switch goos {
	case "windows":
		programData := os.Getenv("ProgramData")
		if programData == "" {
			programData = "C:\\ProgramData"
		}
		return filepath.Join(programData, "SerMan")
	default:
		return "/var/lib/serman"
	}
}

// GetConfigDirectory returns the directory searched for config.toml
// Linux: /etc/serman
// Windows: %ProgramData%\SerMan
func GetConfigDirectory() string {
	return configDirectoryFor(runtime.GOOS)
}

func configDirectoryFor(goos string) string {
	if goos == "windows" {
		return dataDirectoryFor(goos)
	}
	return "/etc/serman"
}

// GetLogPath returns the full path to the serman log file
func GetLogPath() string {
	return filepath.Join(GetDataDirectory(), "serman.log")
}

// GetMonitorLogPath returns the log file used by the monitor service
func GetMonitorLogPath() string {
	return filepath.Join(GetDataDirectory(), "monitor.log")
}

// EnsureDataDirectory creates the data directory if it doesn't exist
// with 0755 permissions (rwxr-xr-x)
func EnsureDataDirectory() error {
	return os.MkdirAll(GetDataDirectory(), 0755)
}

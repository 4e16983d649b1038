// conf/utils.go
package conf

import (
	"os"
	"path/filepath"
	"runtime"
)

const osWindows = "windows"

// defaultConfigPaths returns the directories searched for coco2yolo.yaml,
// the working directory first.
func defaultConfigPaths() []string {
	paths := []string{"."}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return paths
	}

	switch runtime.GOOS {
	case osWindows:
		paths = append(paths, filepath.Join(homeDir, "AppData", "Roaming", "coco2yolo"))
	default:
		paths = append(paths, filepath.Join(homeDir, ".config", "coco2yolo"))
	}

	return paths
}

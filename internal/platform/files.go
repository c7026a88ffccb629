package platform

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// File permissions
const (
	DefaultDirPermissions = 0755
)

// CreateDirectoryIfNotExists creates directory if it doesn't exist
func CreateDirectoryIfNotExists(dirPath string) error {
	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		return os.MkdirAll(dirPath, DefaultDirPermissions)
	}
	return nil
}

// Exists returns true if the path exists
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// FindTool locates an external tool by name. An absolute or relative path is
// used as-is if it exists; a bare name is resolved on PATH, falling back to a
// file of that name in the working directory.
func FindTool(name string) (string, error) {
	if filepath.Base(name) != name {
		if Exists(name) {
			return name, nil
		}
		return "", fmt.Errorf("%s not found", name)
	}

	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}

	if Exists(name) {
		return name, nil
	}

	return "", fmt.Errorf("%s not found on PATH, please install it", name)
}

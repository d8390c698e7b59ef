package utils

import (
	"os"
	"path/filepath"
	"strings"
)

// GetDataPath returns the default storage root, ~/campaign-studio-data
func GetDataPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "/tmp/campaign-studio-data"
	}
	return filepath.Join(homeDir, "campaign-studio-data")
}

// ExpandHome replaces a leading ~/ with the user's home directory
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(homeDir, path[2:])
		}
	}
	return path
}

// GetOutputsPath returns the organized output directory (outputs/<product>/<lang>/<ratio>)
func GetOutputsPath(root string) string {
	return filepath.Join(root, "outputs")
}

// GetGeneratedPath returns the directory of web-served asset copies
func GetGeneratedPath(root string) string {
	return filepath.Join(root, "generated")
}

// GetReferenceImagesPath returns the directory of normalized reference images
func GetReferenceImagesPath(root string) string {
	return filepath.Join(root, "reference_images")
}

// GetLogsPath returns the per-run log directory
func GetLogsPath(root string) string {
	return filepath.Join(root, "logs")
}

// EnsureDataDirectories creates all necessary data directories if they don't exist
func EnsureDataDirectories(root string) error {
	dirs := []string{
		GetOutputsPath(root),
		GetGeneratedPath(root),
		GetReferenceImagesPath(root),
		GetLogsPath(root),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	return nil
}

// RatioDir turns "16:9" into the folder name "16x9"
func RatioDir(ratio string) string {
	return strings.ReplaceAll(ratio, ":", "x")
}

// MediaURL returns the public URL of a file relative to the media root
func MediaURL(rel string) string {
	if rel == "" {
		return ""
	}
	return "/media/" + filepath.ToSlash(rel)
}

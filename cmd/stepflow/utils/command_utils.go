package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func HomeifyPath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") || strings.HasPrefix(path, "$HOME") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("error locating user home directory: %w", err)
		}
		target := ""
		if path[:2] == "~/" {
			target = "~/"
		}
		if path[:5] == "$HOME" {
			target = "$HOME"
		}
		return filepath.Join(home, path[len(target):]), nil
	}
	return path, nil
}

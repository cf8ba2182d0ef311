package tasks

import (
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/stepflow/stepflow/scheduler"
)

// CreateDirectory makes a directory (and any missing parents) at args[0].
func CreateDirectory(args []interface{}, kwargs map[string]interface{}) (scheduler.Task, error) {
	path, err := stringArg(args, 0, "path")
	if err != nil {
		return nil, err
	}
	return &oneShot{fn: func() (string, error) {
		if _, err := os.Stat(path); err == nil {
			return fmt.Sprintf("Directory exists at %s", path), nil
		}
		err := os.MkdirAll(path, 0755)
		if err != nil {
			return "", errors.Wrapf(err, "error creating directory %s", path)
		}
		return fmt.Sprintf("Directory created at %s", path), nil
	}}, nil
}

// DeleteDirectory removes the directory tree at args[0].
func DeleteDirectory(args []interface{}, kwargs map[string]interface{}) (scheduler.Task, error) {
	path, err := stringArg(args, 0, "path")
	if err != nil {
		return nil, err
	}
	return &oneShot{fn: func() (string, error) {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return "Directory not found", nil
		}
		err := os.RemoveAll(path)
		if err != nil {
			return "", errors.Wrapf(err, "error deleting directory %s", path)
		}
		return fmt.Sprintf("Directory deleted at %s", path), nil
	}}, nil
}

// CreateFile creates an empty file at args[0], truncating any existing file.
func CreateFile(args []interface{}, kwargs map[string]interface{}) (scheduler.Task, error) {
	path, err := stringArg(args, 0, "path")
	if err != nil {
		return nil, err
	}
	return &oneShot{fn: func() (string, error) {
		err := os.WriteFile(path, nil, 0644)
		if err != nil {
			return "", errors.Wrapf(err, "error creating file %s", path)
		}
		return fmt.Sprintf("File created at %s", path), nil
	}}, nil
}

// DeleteFile removes the file at args[0].
func DeleteFile(args []interface{}, kwargs map[string]interface{}) (scheduler.Task, error) {
	path, err := stringArg(args, 0, "path")
	if err != nil {
		return nil, err
	}
	return &oneShot{fn: func() (string, error) {
		err := os.Remove(path)
		if os.IsNotExist(err) {
			return "File not found", nil
		}
		if err != nil {
			return "", errors.Wrapf(err, "error deleting file %s", path)
		}
		return fmt.Sprintf("File deleted at %s", path), nil
	}}, nil
}

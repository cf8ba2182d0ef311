package tasks

import (
	"bufio"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/stepflow/stepflow/scheduler"
)

// WriteToFile writes the string args[1] to the file at args[0].
func WriteToFile(args []interface{}, kwargs map[string]interface{}) (scheduler.Task, error) {
	path, err := stringArg(args, 0, "path")
	if err != nil {
		return nil, err
	}
	content, err := stringArg(args, 1, "content")
	if err != nil {
		return nil, err
	}
	return &oneShot{fn: func() (string, error) {
		err := os.WriteFile(path, []byte(content), 0644)
		if err != nil {
			return "", errors.Wrapf(err, "error writing to file %s", path)
		}
		return fmt.Sprintf("Content written to %s", path), nil
	}}, nil
}

// ReadFromFile reads the file at args[0] one line per step.
func ReadFromFile(args []interface{}, kwargs map[string]interface{}) (scheduler.Task, error) {
	path, err := stringArg(args, 0, "path")
	if err != nil {
		return nil, err
	}
	return &readFileTask{path: path}, nil
}

type readFileTask struct {
	path     string
	file     *os.File
	scanner  *bufio.Scanner
	finished bool
}

func (t *readFileTask) Step() (string, error) {
	if t.finished {
		return "", scheduler.ErrDone
	}
	if t.file == nil {
		file, err := os.Open(t.path)
		if os.IsNotExist(err) {
			t.finished = true
			return "File not found", nil
		}
		if err != nil {
			return "", errors.Wrapf(err, "error opening file %s", t.path)
		}
		t.file = file
		t.scanner = bufio.NewScanner(file)
	}
	if t.scanner.Scan() {
		return t.scanner.Text(), nil
	}
	err := t.scanner.Err()
	t.Close()
	if err != nil {
		return "", errors.Wrapf(err, "error reading file %s", t.path)
	}
	return "", scheduler.ErrDone
}

func (t *readFileTask) Close() {
	if t.file != nil {
		t.file.Close()
		t.file = nil
		t.scanner = nil
	}
}

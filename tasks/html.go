package tasks

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"golang.org/x/net/html"

	"github.com/stepflow/stepflow/common/logger"
	"github.com/stepflow/stepflow/scheduler"
)

const fetchRetryMax = 3

// HTMLToText returns a task that streams the document at args[0] and writes
// its visible text to the file at args[1]. The work is a pipeline of stages
// owned by the task: an HTTP fetch, a markup-stripping tokenizer and a file
// writer. The scheduler only ever sees the outer task; each step advances
// the tokenizer by one token, so large documents interleave with other jobs.
func HTMLToText(logFactory logger.LogFactory) scheduler.TaskFunc {
	return func(args []interface{}, kwargs map[string]interface{}) (scheduler.Task, error) {
		url, err := stringArg(args, 0, "url")
		if err != nil {
			return nil, err
		}
		path, err := stringArg(args, 1, "path")
		if err != nil {
			return nil, err
		}
		client := retryablehttp.NewClient()
		client.RetryMax = fetchRetryMax
		client.Logger = NewLeveledLogger(logFactory("HTMLToText"))
		return &htmlToTextTask{
			url:    url,
			path:   path,
			client: client,
		}, nil
	}
}

type htmlToTextTask struct {
	url    string
	path   string
	client *retryablehttp.Client
	resp   *http.Response
	clean  *htmlCleaner
	out    *textFileWriter
}

func (t *htmlToTextTask) Step() (string, error) {
	// The first step issues the request and wires up the pipeline; every
	// step after that advances the tokenizer by one token.
	if t.resp == nil {
		resp, err := t.client.Get(t.url)
		if err != nil {
			return "", errors.Wrapf(err, "error fetching %s", t.url)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return "", errors.Errorf("unexpected status %q fetching %s", resp.Status, t.url)
		}
		t.resp = resp
		t.out = &textFileWriter{path: t.path}
		t.clean = &htmlCleaner{tokenizer: html.NewTokenizer(resp.Body), out: t.out}
		return fmt.Sprintf("Fetching %s", t.url), nil
	}

	text, err := t.clean.Next()
	if err == io.EOF {
		t.Close()
		return "", scheduler.ErrDone
	}
	if err != nil {
		return "", err
	}
	return text, nil
}

func (t *htmlToTextTask) Close() {
	if t.resp != nil {
		t.resp.Body.Close()
		t.resp = nil
	}
	if t.out != nil {
		t.out.Close()
		t.out = nil
	}
	t.clean = nil
}

// htmlCleaner strips markup from a token stream, forwarding visible text to
// the next stage. Contents of script and style elements are dropped.
type htmlCleaner struct {
	tokenizer *html.Tokenizer
	out       *textFileWriter
	skipDepth int
}

// Next advances the stream by one token. Returns io.EOF at the end of the
// document; text tokens are pushed to the writer and echoed back.
func (c *htmlCleaner) Next() (string, error) {
	switch c.tokenizer.Next() {
	case html.ErrorToken:
		err := c.tokenizer.Err()
		if err != io.EOF {
			return "", errors.Wrap(err, "error tokenizing HTML")
		}
		return "", io.EOF
	case html.StartTagToken:
		name, _ := c.tokenizer.TagName()
		if isSkippedTag(string(name)) {
			c.skipDepth++
		}
	case html.EndTagToken:
		name, _ := c.tokenizer.TagName()
		if isSkippedTag(string(name)) && c.skipDepth > 0 {
			c.skipDepth--
		}
	case html.TextToken:
		if c.skipDepth == 0 {
			text := strings.TrimSpace(string(c.tokenizer.Text()))
			if text != "" {
				err := c.out.Write(text + " ")
				if err != nil {
					return "", err
				}
				return text, nil
			}
		}
	}
	return "", nil
}

func isSkippedTag(name string) bool {
	return name == "script" || name == "style"
}

// textFileWriter is the terminal pipeline stage; it appends text chunks to a
// file that is opened lazily on the first write.
type textFileWriter struct {
	path string
	file *os.File
}

func (w *textFileWriter) Write(chunk string) error {
	if w.file == nil {
		file, err := os.Create(w.path)
		if err != nil {
			return errors.Wrapf(err, "error creating output file %s", w.path)
		}
		w.file = file
	}
	_, err := w.file.WriteString(chunk)
	if err != nil {
		return errors.Wrapf(err, "error writing to file %s", w.path)
	}
	return nil
}

func (w *textFileWriter) Close() {
	if w.file != nil {
		w.file.Close()
		w.file = nil
	}
}

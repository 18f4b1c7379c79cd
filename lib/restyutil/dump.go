// Package restyutil records the raw http exchanges of a resty client, it is
// used to inspect the markup the registry actually served.
package restyutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

type Output interface {
	Write(id string, contents string)
}

// DirectoryOutput writes every exchange into its own file of a directory.
type DirectoryOutput struct {
	directory string
}

// NewDirectoryOutput creates dir if needed, files of earlier runs are kept
// and overwritten as ids repeat.
func NewDirectoryOutput(dir string) (DirectoryOutput, error) {
	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return DirectoryOutput{}, err
	}
	return DirectoryOutput{directory: dir}, nil
}

func (o DirectoryOutput) Write(id string, contents string) {
	err := os.WriteFile(filepath.Join(o.directory, id), []byte(contents), 0o600)
	if err != nil {
		slog.Warn("failed to write exchange dump", "id", id, "err", err)
	}
}

var dumpCounter atomic.Uint64

func exchangeId(res *resty.Response) string {
	path := strings.Trim(res.Request.RawRequest.URL.Path, "/")
	path = strings.ReplaceAll(path, "/", "_")
	if path == "" {
		path = "root"
	}
	return fmt.Sprintf(
		"%04d-%s-%s.txt",
		dumpCounter.Add(1),
		strings.ToLower(res.Request.Method),
		path,
	)
}

// Dump writes every response received by client to output, a nil output
// leaves the client untouched.
func Dump(client *resty.Client, output Output) {
	if output == nil {
		return
	}
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		output.Write(exchangeId(res), FormatExchange(res))
		return nil
	})
}

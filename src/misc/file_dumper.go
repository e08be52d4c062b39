package misc

import (
	"bufio"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

type FileDumper struct {
	path string
}

func (this *FileDumper) Init(path string) {
	this.path = path
}

func (this *FileDumper) Path() string {
	return this.path
}

// WriteLines replaces the file with lines, creating parent directories.
func (this *FileDumper) WriteLines(lines []string) error {
	if err := os.MkdirAll(filepath.Dir(this.path), 0o755); err != nil {
		return errors.Wrapf(err, "create directory for %s", this.path)
	}

	file, err := os.Create(this.path)
	if err != nil {
		return errors.Wrapf(err, "create %s", this.path)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, line := range lines {
		if _, err := writer.WriteString(line + "\n"); err != nil {
			return errors.Wrapf(err, "write %s", this.path)
		}
	}
	return errors.Wrapf(writer.Flush(), "flush %s", this.path)
}

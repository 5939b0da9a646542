package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/abdul-hamid-achik/hitgraph/packages/core/runner"
)

// Options selects where and how reporters write
type Options struct {
	// OutputDir receives report files for the non-console formats. When
	// empty they are written to Stdout.
	OutputDir string
	Stdout    io.Writer
	Verbose   bool
	NoColor   bool
}

var reportFiles = map[string]string{
	"json":  "hitgraph-report.json",
	"junit": "hitgraph-junit.xml",
	"tap":   "hitgraph-report.tap",
}

// New builds a reporter for each name. The returned close function closes
// any report file that was opened.
func New(names []string, opts Options) (runner.Reporter, func() error, error) {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}

	var (
		reporters runner.MultiReporter
		files     []*os.File
	)
	closeAll := func() error {
		var first error
		for _, f := range files {
			if err := f.Close(); err != nil && first == nil {
				first = err
			}
		}
		return first
	}

	for _, name := range names {
		if _, ok := reportFiles[name]; !ok && name != "console" {
			_ = closeAll()
			return nil, nil, fmt.Errorf("unknown reporter %q", name)
		}

		w := opts.Stdout
		if name != "console" && opts.OutputDir != "" {
			if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
				_ = closeAll()
				return nil, nil, fmt.Errorf("creating output directory: %w", err)
			}
			file, err := os.Create(filepath.Join(opts.OutputDir, reportFiles[name]))
			if err != nil {
				_ = closeAll()
				return nil, nil, fmt.Errorf("creating %s report: %w", name, err)
			}
			files = append(files, file)
			w = file
		}

		switch name {
		case "console":
			reporters = append(reporters, NewConsoleReporter(WithWriter(w), WithVerbose(opts.Verbose), WithNoColor(opts.NoColor)))
		case "json":
			reporters = append(reporters, NewJSONReporter(JSONWithWriter(w)))
		case "junit":
			reporters = append(reporters, NewJUnitReporter(JUnitWithWriter(w)))
		case "tap":
			reporters = append(reporters, NewTAPReporter(TAPWithWriter(w)))
		}
	}

	return reporters, closeAll, nil
}

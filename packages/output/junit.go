package output

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/hitgraph/packages/assertions"
	"github.com/abdul-hamid-achik/hitgraph/packages/core/graph"
	"github.com/abdul-hamid-achik/hitgraph/packages/core/runner"
)

// JUnit XML structures

// JUnitTestSuites is the root element
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Name       string           `xml:"name,attr,omitempty"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Skipped    int              `xml:"skipped,attr"`
	Time       float64          `xml:"time,attr"`
	Timestamp  string           `xml:"timestamp,attr,omitempty"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite represents one hitgraph suite
type JUnitTestSuite struct {
	XMLName   xml.Name        `xml:"testsuite"`
	Name      string          `xml:"name,attr"`
	Tests     int             `xml:"tests,attr"`
	Failures  int             `xml:"failures,attr"`
	Errors    int             `xml:"errors,attr"`
	Skipped   int             `xml:"skipped,attr"`
	Time      float64         `xml:"time,attr"`
	Timestamp string          `xml:"timestamp,attr,omitempty"`
	TestCases []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase represents a single test case
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Error     *JUnitError   `xml:"error,omitempty"`
	Skipped   *JUnitSkipped `xml:"skipped,omitempty"`
	SystemOut string        `xml:"system-out,omitempty"`
}

// JUnitFailure represents an assertion failure
type JUnitFailure struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
	Content string `xml:",chardata"`
}

// JUnitError represents any other test error
type JUnitError struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
	Content string `xml:",chardata"`
}

// JUnitSkipped represents a skipped test
type JUnitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

// JUnitReporter writes JUnit XML once the run has finished. Helper tests are
// left out.
type JUnitReporter struct {
	collector
	writer io.Writer
	err    error
}

type JUnitOption func(*JUnitReporter)

func NewJUnitReporter(opts ...JUnitOption) *JUnitReporter {
	f := &JUnitReporter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JUnitWithWriter(w io.Writer) JUnitOption {
	return func(f *JUnitReporter) {
		f.writer = w
	}
}

func (f *JUnitReporter) Finished(result *runner.RunResult) {
	suites := JUnitTestSuites{
		Name:      "hitgraph",
		Time:      result.Duration.Seconds(),
		Timestamp: result.StartTime.Format(time.RFC3339),
	}

	index := make(map[string]int)
	for _, t := range result.Tests {
		if !t.IsReal() {
			continue
		}
		name := suiteName(t)
		i, ok := index[name]
		if !ok {
			i = len(suites.TestSuites)
			index[name] = i
			suite := JUnitTestSuite{Name: name}
			if s := t.Suite(); s != nil {
				if d, err := s.Duration(); err == nil {
					suite.Time = d.Seconds()
				}
				suite.Timestamp = s.StartTime().Format(time.RFC3339)
			}
			suites.TestSuites = append(suites.TestSuites, suite)
		}
		suite := &suites.TestSuites[i]

		tc := JUnitTestCase{
			Name:      t.DisplayName(),
			ClassName: name,
			SystemOut: t.Output(),
		}
		if d, err := t.Duration(); err == nil && t.State() != graph.StateSkipped {
			tc.Time = d.Seconds()
		}

		switch t.State() {
		case graph.StateSkipped:
			suite.Skipped++
			tc.Skipped = &JUnitSkipped{Message: skipReason(t)}
		case graph.StateFailure:
			var failure *assertions.Failure
			if errors.As(t.Failure(), &failure) {
				suite.Failures++
				tc.Failure = &JUnitFailure{
					Message: failure.Description,
					Type:    "AssertionError",
					Content: fmt.Sprintf("expected %v, got %v. %s", failure.Expected, failure.Actual, failure.Message),
				}
			} else {
				suite.Errors++
				tc.Error = &JUnitError{
					Message: errorText(t),
					Type:    "Error",
				}
			}
		}

		suite.Tests++
		suite.TestCases = append(suite.TestCases, tc)
	}

	for _, s := range suites.TestSuites {
		suites.Tests += s.Tests
		suites.Failures += s.Failures
		suites.Errors += s.Errors
		suites.Skipped += s.Skipped
	}

	fmt.Fprintf(f.writer, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	encoder := xml.NewEncoder(f.writer)
	encoder.Indent("", "  ")
	f.err = encoder.Encode(suites)
}

// Err returns the error hit while writing the report, if any
func (f *JUnitReporter) Err() error {
	return f.err
}

// skipReason names the parents that did not succeed
func skipReason(t *graph.Test) string {
	var failed []string
	for _, p := range t.Parents() {
		if p.State() != graph.StateSuccess {
			failed = append(failed, p.Identifier())
		}
	}
	if len(failed) == 0 {
		return "run cancelled"
	}
	return "dependency did not succeed: " + strings.Join(failed, ", ")
}

package assertions

import (
	"fmt"

	"github.com/abdul-hamid-achik/hitgraph/packages/capture"
	"github.com/abdul-hamid-achik/hitgraph/packages/http"
)

// Failure is raised by a failing assertion.
type Failure struct {
	Description string
	Expected    any
	Actual      any
	Message     string
}

func (f *Failure) Error() string {
	if f.Message == "" {
		return "assertion failed: " + f.Description
	}
	return fmt.Sprintf("assertion failed: %s: %s", f.Description, f.Message)
}

// Asserter records assertions for one test.
type Asserter struct {
	record func(string)
}

// New returns an Asserter reporting each description to record. record may be nil.
func New(record func(string)) *Asserter {
	return &Asserter{record: record}
}

func (a *Asserter) check(desc string, expected, actual any, passed bool, msg string) {
	if a.record != nil {
		a.record(desc)
	}
	if !passed {
		panic(&Failure{Description: desc, Expected: expected, Actual: actual, Message: msg})
	}
}

func describe(base string, msgAndArgs []any) string {
	if len(msgAndArgs) == 0 {
		return base
	}
	if format, ok := msgAndArgs[0].(string); ok {
		return fmt.Sprintf(format, msgAndArgs[1:]...)
	}
	return base
}

func (a *Asserter) Equal(expected, actual any, msgAndArgs ...any) {
	passed, msg := equals(actual, expected)
	a.check(describe(fmt.Sprintf("%v equals %v", actual, expected), msgAndArgs), expected, actual, passed, msg)
}

func (a *Asserter) NotEqual(unexpected, actual any, msgAndArgs ...any) {
	passed, _ := equals(actual, unexpected)
	msg := ""
	if passed {
		msg = fmt.Sprintf("expected not to equal %v", unexpected)
	}
	a.check(describe(fmt.Sprintf("%v does not equal %v", actual, unexpected), msgAndArgs), unexpected, actual, !passed, msg)
}

func (a *Asserter) True(value bool, desc string) {
	a.check(desc, true, value, value, "expected true")
}

func (a *Asserter) False(value bool, desc string) {
	a.check(desc, false, value, !value, "expected false")
}

func (a *Asserter) NoError(err error, msgAndArgs ...any) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	a.check(describe("no error", msgAndArgs), nil, err, err == nil, msg)
}

func (a *Asserter) Contains(haystack, needle any, msgAndArgs ...any) {
	passed, msg := contains(haystack, needle)
	a.check(describe(fmt.Sprintf("contains %v", needle), msgAndArgs), needle, haystack, passed, msg)
}

func (a *Asserter) Matches(actual any, pattern string, msgAndArgs ...any) {
	passed, msg := matches(actual, pattern)
	a.check(describe(fmt.Sprintf("matches /%s/", pattern), msgAndArgs), pattern, actual, passed, msg)
}

func (a *Asserter) Length(actual any, n int, msgAndArgs ...any) {
	passed, msg := length(actual, n)
	a.check(describe(fmt.Sprintf("length %d", n), msgAndArgs), n, computeLength(actual), passed, msg)
}

func (a *Asserter) Status(resp *http.Response, code int) {
	actual := 0
	if resp != nil {
		actual = resp.StatusCode
	}
	passed, msg := equals(actual, code)
	a.check(fmt.Sprintf("status equals %d", code), code, actual, resp != nil && passed, msg)
}

func (a *Asserter) Header(resp *http.Response, name, expected string) {
	actual := ""
	if resp != nil {
		actual = resp.Header(name)
	}
	passed, msg := equals(actual, expected)
	a.check(fmt.Sprintf("header %s equals %s", name, expected), expected, actual, passed, msg)
}

// JSON checks the value at a JSON path of the response body.
func (a *Asserter) JSON(resp *http.Response, path string, expected any) {
	desc := fmt.Sprintf("body.%s equals %v", path, expected)
	if resp == nil {
		a.check(desc, expected, nil, false, "no response")
		return
	}
	actual, found := capture.NewExtractor(resp).Extract(capture.Body(path, convertBracketNotation(path)))
	if !found {
		a.check(desc, expected, nil, false, fmt.Sprintf("path %q not found", path))
		return
	}
	passed, msg := equals(actual, expected)
	a.check(desc, expected, actual, passed, msg)
}

func (a *Asserter) JSONExists(resp *http.Response, path string) {
	found := false
	if resp != nil {
		_, found = capture.NewExtractor(resp).Extract(capture.Body(path, convertBracketNotation(path)))
	}
	a.check(fmt.Sprintf("body.%s exists", path), true, found, found, "expected to exist")
}

// Schema validates the response body against a JSON Schema document.
func (a *Asserter) Schema(resp *http.Response, schemaJSON string) {
	if resp == nil {
		a.check("body matches schema", schemaJSON, nil, false, "no response")
		return
	}
	passed, msg := schema(resp.Body, schemaJSON)
	a.check("body matches schema", schemaJSON, resp.BodyString(), passed, msg)
}

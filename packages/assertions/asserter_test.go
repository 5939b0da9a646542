package assertions

import (
	"errors"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/hitgraph/packages/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createResponse(statusCode int, body string, headers map[string]string) *http.Response {
	if headers == nil {
		headers = make(map[string]string)
	}
	if _, ok := headers["Content-Type"]; !ok {
		headers["Content-Type"] = "application/json"
	}
	return &http.Response{
		StatusCode: statusCode,
		Headers:    headers,
		Body:       []byte(body),
		Duration:   100 * time.Millisecond,
	}
}

// failureOf runs fn and returns the *Failure it raised, if any.
func failureOf(fn func()) (f *Failure) {
	defer func() {
		if r := recover(); r != nil {
			f = r.(*Failure)
		}
	}()
	fn()
	return nil
}

func TestAsserter_RecordsDescriptions(t *testing.T) {
	var recorded []string
	a := New(func(desc string) { recorded = append(recorded, desc) })

	a.Equal(1, 1)
	a.True(true, "flag is set")
	a.Contains("hello world", "world")

	assert.Equal(t, []string{"1 equals 1", "flag is set", "contains world"}, recorded)
}

func TestAsserter_FailureRecordsThenPanics(t *testing.T) {
	var recorded []string
	a := New(func(desc string) { recorded = append(recorded, desc) })

	f := failureOf(func() { a.Equal("x", "y", "name is %s", "x") })

	require.NotNil(t, f)
	assert.Equal(t, "name is x", f.Description)
	assert.Equal(t, "x", f.Expected)
	assert.Equal(t, "y", f.Actual)
	assert.Equal(t, "assertion failed: name is x: expected x, got y", f.Error())
	assert.Equal(t, []string{"name is x"}, recorded)
}

func TestAsserter_NumericEquality(t *testing.T) {
	a := New(nil)
	assert.Nil(t, failureOf(func() { a.Equal(200, float64(200)) }))
	assert.Nil(t, failureOf(func() { a.NotEqual(1, 2) }))
	assert.NotNil(t, failureOf(func() { a.NotEqual(3, int64(3)) }))
}

func TestAsserter_Values(t *testing.T) {
	a := New(nil)

	tests := []struct {
		name   string
		fn     func()
		passed bool
	}{
		{"contains substring", func() { a.Contains("abc", "b") }, true},
		{"contains array item", func() { a.Contains([]any{"x", float64(2)}, 2) }, true},
		{"missing array item", func() { a.Contains([]any{"x"}, "y") }, false},
		{"matches", func() { a.Matches("user-42", `/^user-\d+$/`) }, true},
		{"does not match", func() { a.Matches("admin", `^user`) }, false},
		{"length", func() { a.Length([]int{1, 2, 3}, 3) }, true},
		{"wrong length", func() { a.Length("ab", 3) }, false},
		{"no error", func() { a.NoError(nil) }, true},
		{"error", func() { a.NoError(errors.New("boom")) }, false},
		{"false", func() { a.False(false, "not set") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := failureOf(tt.fn)
			if tt.passed {
				assert.Nil(t, f)
			} else {
				assert.NotNil(t, f)
			}
		})
	}
}

func TestAsserter_Response(t *testing.T) {
	resp := createResponse(200, `{"data": {"items": [{"id": 1}, {"id": 2}]}}`, map[string]string{"X-Trace": "abc"})
	a := New(nil)

	assert.Nil(t, failureOf(func() { a.Status(resp, 200) }))
	assert.NotNil(t, failureOf(func() { a.Status(resp, 201) }))
	assert.NotNil(t, failureOf(func() { a.Status(nil, 200) }))
	assert.Nil(t, failureOf(func() { a.Header(resp, "x-trace", "abc") }))
	assert.Nil(t, failureOf(func() { a.JSON(resp, "data.items[1].id", 2) }))
	assert.Nil(t, failureOf(func() { a.JSONExists(resp, "data.items") }))

	f := failureOf(func() { a.JSON(resp, "data.missing", 1) })
	require.NotNil(t, f)
	assert.Contains(t, f.Message, "not found")
}

func TestAsserter_Schema(t *testing.T) {
	schemaJSON := `{
		"type": "object",
		"required": ["id", "name"],
		"properties": {"id": {"type": "integer"}, "name": {"type": "string"}}
	}`
	a := New(nil)

	ok := createResponse(200, `{"id": 1, "name": "ada"}`, nil)
	assert.Nil(t, failureOf(func() { a.Schema(ok, schemaJSON) }))

	bad := createResponse(200, `{"id": "one"}`, nil)
	f := failureOf(func() { a.Schema(bad, schemaJSON) })
	require.NotNil(t, f)
	assert.Contains(t, f.Message, "schema validation failed")

	notJSON := createResponse(200, `<html>`, map[string]string{"Content-Type": "text/html"})
	f = failureOf(func() { a.Schema(notJSON, schemaJSON) })
	require.NotNil(t, f)
	assert.Equal(t, "response body is not JSON", f.Message)
}

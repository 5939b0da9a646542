package capture

import (
	"github.com/abdul-hamid-achik/hitgraph/packages/http"
	"github.com/tidwall/gjson"
)

// Source is where a value is read from in a response.
type Source int

const (
	SourceBody Source = iota
	SourceHeader
	SourceStatus
	SourceDuration
)

// Capture names one value to extract.
type Capture struct {
	Name   string
	Source Source
	Path   string
}

func Body(name, path string) Capture  { return Capture{Name: name, Source: SourceBody, Path: path} }
func Header(name, key string) Capture { return Capture{Name: name, Source: SourceHeader, Path: key} }
func Status(name string) Capture      { return Capture{Name: name, Source: SourceStatus} }
func Duration(name string) Capture    { return Capture{Name: name, Source: SourceDuration} }

type Extractor struct {
	response *http.Response
	bodyJSON gjson.Result
}

func NewExtractor(resp *http.Response) *Extractor {
	e := &Extractor{
		response: resp,
	}
	if resp.IsJSON() || gjson.ValidBytes(resp.Body) {
		e.bodyJSON = gjson.ParseBytes(resp.Body)
	}
	return e
}

func (e *Extractor) Extract(c Capture) (any, bool) {
	switch c.Source {
	case SourceBody:
		return e.extractFromBody(c.Path)
	case SourceHeader:
		return e.extractFromHeader(c.Path)
	case SourceStatus:
		return e.response.StatusCode, true
	case SourceDuration:
		return e.response.DurationMs(), true
	default:
		return nil, false
	}
}

func (e *Extractor) extractFromBody(path string) (any, bool) {
	if !e.bodyJSON.Exists() {
		if path == "" {
			return e.response.BodyString(), true
		}
		return nil, false
	}

	if path == "" {
		return e.bodyJSON.Value(), true
	}

	result := e.bodyJSON.Get(path)
	if !result.Exists() {
		return nil, false
	}
	return result.Value(), true
}

func (e *Extractor) extractFromHeader(name string) (any, bool) {
	value := e.response.Header(name)
	if value == "" {
		return nil, false
	}
	return value, true
}

// ExtractAll returns every capture found in resp, keyed by name.
func ExtractAll(resp *http.Response, captures ...Capture) map[string]any {
	extractor := NewExtractor(resp)
	results := make(map[string]any)

	for _, c := range captures {
		if value, ok := extractor.Extract(c); ok {
			results[c.Name] = value
		}
	}

	return results
}

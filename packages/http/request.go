package http

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"time"
)

type Request struct {
	Method      string
	URL         string
	Headers     map[string]string
	Body        []byte
	Timeout     time.Duration
	QueryParams map[string]string
}

// NewRequest builds a plain web request.
func NewRequest(method, requestURL string) *Request {
	return &Request{
		Method:      method,
		URL:         requestURL,
		Headers:     make(map[string]string),
		QueryParams: make(map[string]string),
	}
}

// NewAPIRequest builds a JSON request. A non-nil payload is encoded as the body.
func NewAPIRequest(method, requestURL string, payload any) (*Request, error) {
	r := NewRequest(method, requestURL)
	r.Headers["Accept"] = "application/json"
	if payload != nil {
		if err := r.SetJSON(payload); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Request) SetHeader(key, value string) *Request {
	r.Headers[key] = value
	return r
}

func (r *Request) SetBody(body string) *Request {
	r.Body = []byte(body)
	return r
}

// SetJSON encodes payload as the body and sets the JSON content type.
func (r *Request) SetJSON(payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding request body: %w", err)
	}
	r.Body = data
	r.Headers["Content-Type"] = "application/json"
	return nil
}

func (r *Request) SetTimeout(d time.Duration) *Request {
	r.Timeout = d
	return r
}

func (r *Request) SetQueryParam(key, value string) *Request {
	r.QueryParams[key] = value
	return r
}

func (r *Request) SetBasicAuth(username, password string) *Request {
	credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	r.Headers["Authorization"] = "Basic " + credentials
	return r
}

func (r *Request) SetBearerToken(token string) *Request {
	r.Headers["Authorization"] = "Bearer " + token
	return r
}

func (r *Request) BuildURL() string {
	if len(r.QueryParams) == 0 {
		return r.URL
	}

	u, err := url.Parse(r.URL)
	if err != nil {
		return r.URL
	}

	q := u.Query()
	for k, v := range r.QueryParams {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (r *Request) String() string {
	return r.Method + " " + r.BuildURL()
}

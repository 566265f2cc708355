package consultant

import (
	"io"
	"net/http"
	"strings"
)

// recordedRequest keeps what an adapter sent for later assertions.
type recordedRequest struct {
	Method string
	URL    string
	Header http.Header
	Body   string
}

type fakeResponse struct {
	status int
	body   string
	err    error
}

// fakeDoer replays canned responses in order and records every request.
// When the responses run out, the last one repeats.
type fakeDoer struct {
	responses []fakeResponse
	requests  []recordedRequest
}

func (d *fakeDoer) Do(req *http.Request) (*http.Response, error) {
	var body string
	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		body = string(b)
	}
	d.requests = append(d.requests, recordedRequest{
		Method: req.Method,
		URL:    req.URL.String(),
		Header: req.Header.Clone(),
		Body:   body,
	})

	i := len(d.requests) - 1
	if i >= len(d.responses) {
		i = len(d.responses) - 1
	}
	resp := d.responses[i]

	if resp.err != nil {
		return nil, resp.err
	}

	status := resp.status
	if status == 0 {
		status = http.StatusOK
	}

	return &http.Response{
		StatusCode: status,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader(resp.body)),
	}, nil
}

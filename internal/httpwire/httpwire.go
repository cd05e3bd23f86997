// Package httpwire is a minimal, hand-rolled HTTP/1.1 framer limited to
// exactly the behaviors the aggregator's wire protocol needs: request
// line + headers + fixed-length body on the way in, status line +
// headers + body on the way out. It does not support chunked encoding,
// keep-alive multiplexing, or compression, and it never touches
// net/http — that package is reserved for the separate admin surface.
package httpwire

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrBadRequestLine is returned when the request line does not have
// exactly three whitespace-separated tokens. Callers respond 400 before
// closing the connection; any other parse error is an IO failure and
// terminates the connection without a response.
var ErrBadRequestLine = errors.New("httpwire: malformed request line")

// Request is a parsed HTTP/1.1 request limited to what the aggregator
// recognizes: method, path, an optional raw query string, lower-cased
// headers, and a fixed-length body.
type Request struct {
	Method  string
	Path    string
	Query   string // raw query string, e.g. "stationID=VIC01"
	Headers map[string]string
	Body    []byte
}

// Header returns the value of a lower-cased header name, or "" if absent.
func (r *Request) Header(name string) string {
	return r.Headers[strings.ToLower(name)]
}

// LamportClock returns the Lamport-Clock header as an integer, 0 if
// missing or unparsable.
func (r *Request) LamportClock() int64 {
	v, _ := strconv.ParseInt(r.Header("Lamport-Clock"), 10, 64)
	return v
}

// ContentLength returns the Content-Length header as an integer, 0 if
// missing or unparsable.
func (r *Request) ContentLength() int64 {
	v, _ := strconv.ParseInt(r.Header("Content-Length"), 10, 64)
	return v
}

// QueryParam extracts a single query parameter's value from the raw
// query string, without pulling in net/url's full URL model.
func (r *Request) QueryParam(name string) string {
	for _, pair := range strings.Split(r.Query, "&") {
		if pair == "" {
			continue
		}
		kv := strings.SplitN(pair, "=", 2)
		if kv[0] == name {
			if len(kv) == 2 {
				return kv[1]
			}
			return ""
		}
	}
	return ""
}

// ParseRequest reads one HTTP/1.1 request from r. Any error other than
// ErrBadRequestLine is an IO-level failure; the caller must terminate
// the connection rather than attempt to frame a response.
func ParseRequest(r *bufio.Reader) (*Request, error) {
	line, err := readLine(r)
	if err != nil {
		return nil, err
	}

	tokens := strings.Fields(line)
	if len(tokens) != 3 {
		return nil, ErrBadRequestLine
	}
	method, target := tokens[0], tokens[1]

	path := target
	query := ""
	if idx := strings.IndexByte(target, '?'); idx >= 0 {
		path = target[:idx]
		query = target[idx+1:]
	}

	headers := make(map[string]string)
	for {
		headerLine, err := readLine(r)
		if err != nil {
			return nil, err
		}
		if headerLine == "" {
			break
		}
		idx := strings.IndexByte(headerLine, ':')
		if idx < 0 {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(headerLine[:idx]))
		value := strings.TrimSpace(headerLine[idx+1:])
		headers[name] = value
	}

	req := &Request{Method: method, Path: path, Query: query, Headers: headers}

	if n, _ := strconv.ParseInt(headers["content-length"], 10, 64); n > 0 {
		body := make([]byte, n)
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, fmt.Errorf("httpwire: reading body: %w", err)
		}
		req.Body = body
	}

	return req, nil
}

// readLine reads a single CRLF- or LF-terminated line, with the
// terminator stripped.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

var reasonPhrases = map[int]string{
	200: "OK",
	201: "Created",
	204: "No Content",
	400: "Bad Request",
	500: "Internal Server Error",
	503: "Service Unavailable",
}

// ReasonPhrase returns the standard reason phrase for a status code
// recognized by this protocol, or "Unknown" otherwise.
func ReasonPhrase(status int) string {
	if p, ok := reasonPhrases[status]; ok {
		return p
	}
	return "Unknown"
}

// WriteResponse writes a complete HTTP/1.1 response: status line,
// Content-Type, an accurate Content-Length, a blank line, then body.
// Every response carries Content-Type: application/json, with no
// exception for 503 — a nil or empty body encodes as a zero-length
// JSON body, never a distinct text/plain response.
func WriteResponse(w io.Writer, status int, body []byte) error {
	var b strings.Builder
	fmt.Fprintf(&b, "HTTP/1.1 %d %s\r\n", status, ReasonPhrase(status))
	b.WriteString("Content-Type: application/json\r\n")
	fmt.Fprintf(&b, "Content-Length: %d\r\n", len(body))
	b.WriteString("\r\n")
	if _, err := io.WriteString(w, b.String()); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

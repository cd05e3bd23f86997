package httpwire

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequestPUT(t *testing.T) {
	raw := "PUT /weather.json HTTP/1.1\r\n" +
		"Content-Type: application/json\r\n" +
		"Content-Length: 14\r\n" +
		"Lamport-Clock: 2\r\n" +
		"\r\n" +
		`{"id":"VIC01"}`
	req, err := ParseRequest(bufio.NewReader(strings.NewReader(raw)))
	require.NoError(t, err)

	assert.Equal(t, "PUT", req.Method)
	assert.Equal(t, "/weather.json", req.Path)
	assert.Equal(t, int64(2), req.LamportClock())
	assert.Equal(t, int64(14), req.ContentLength())
	assert.Equal(t, `{"id":"VIC01"}`, string(req.Body))
}

func TestParseRequestGETWithQuery(t *testing.T) {
	raw := "GET /weather.json?stationID=SA01 HTTP/1.1\r\n" +
		"Lamport-Clock: 1\r\n" +
		"\r\n"
	req, err := ParseRequest(bufio.NewReader(strings.NewReader(raw)))
	require.NoError(t, err)

	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, "/weather.json", req.Path)
	assert.Equal(t, "SA01", req.QueryParam("stationID"))
}

func TestParseRequestMissingClockDefaultsZero(t *testing.T) {
	raw := "GET /weather.json HTTP/1.1\r\n\r\n"
	req, err := ParseRequest(bufio.NewReader(strings.NewReader(raw)))
	require.NoError(t, err)
	assert.Equal(t, int64(0), req.LamportClock())
}

func TestParseRequestBadRequestLine(t *testing.T) {
	raw := "GARBAGE\r\n\r\n"
	_, err := ParseRequest(bufio.NewReader(strings.NewReader(raw)))
	assert.ErrorIs(t, err, ErrBadRequestLine)
}

func TestParseRequestTruncatedBodyIsIOError(t *testing.T) {
	raw := "PUT /weather.json HTTP/1.1\r\n" +
		"Content-Length: 100\r\n" +
		"\r\n" +
		"short"
	_, err := ParseRequest(bufio.NewReader(strings.NewReader(raw)))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBadRequestLine)
}

func TestWriteResponseFraming(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteResponse(&buf, 201, []byte(`{"id":"VIC01"}`)))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "HTTP/1.1 201 Created\r\n"))
	assert.Contains(t, out, "Content-Type: application/json\r\n")
	assert.Contains(t, out, "Content-Length: 14\r\n")
	assert.True(t, strings.HasSuffix(out, `{"id":"VIC01"}`))
}

func TestWriteResponseEmptyBody(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteResponse(&buf, 204, nil))
	assert.Contains(t, buf.String(), "Content-Length: 0\r\n")
}

func TestWriteResponseServiceUnavailableIsJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteResponse(&buf, 503, nil))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "HTTP/1.1 503 Service Unavailable\r\n"))
	assert.Contains(t, out, "Content-Type: application/json\r\n")
	assert.Contains(t, out, "Content-Length: 0\r\n")
}

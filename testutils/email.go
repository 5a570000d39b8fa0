package testutils

import (
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"
	"testing"

	"gotest.tools/assert"
	is "gotest.tools/assert/cmp"
)

const contentTransferEncoding = "Content-Transfer-Encoding"

func parseMessage(t *testing.T, content string) *mail.Message {
	t.Helper()

	msg, err := mail.ReadMessage(strings.NewReader(content))
	assert.NilError(t, err, "couldn't parse message:\n%s", content)
	return msg
}

// mediaType asserts that contentType matches expected and returns its params.
// Non-multipart types must declare a utf-8 charset.
func mediaType(
	t *testing.T, contentType, expected string,
) map[string]string {
	t.Helper()

	actual, params, err := mime.ParseMediaType(contentType)
	assert.NilError(t, err, "bad Content-Type: %q", contentType)
	assert.Equal(t, expected, actual)

	if !strings.HasPrefix(expected, "multipart/") {
		assert.Equal(t, "utf-8", params["charset"])
	}
	return params
}

func AssertDecodedContent(t *testing.T, content io.Reader, expected string) {
	t.Helper()

	decoded, err := io.ReadAll(content)
	assert.NilError(t, err)
	assert.Equal(t, expected, string(decoded))
}

// ParseTextMessage parses a single part text/plain message and returns a
// reader that decodes its quoted-printable body.
func ParseTextMessage(
	t *testing.T, content string,
) (*mail.Message, *quotedprintable.Reader) {
	t.Helper()

	msg := parseMessage(t, content)
	mediaType(t, msg.Header.Get("Content-Type"), "text/plain")
	assert.Equal(t, "quoted-printable", msg.Header.Get(contentTransferEncoding))
	return msg, quotedprintable.NewReader(msg.Body)
}

func ParseMultipartMessageAndBoundary(
	t *testing.T, content string,
) (msg *mail.Message, boundary string, partReader *multipart.Reader) {
	t.Helper()

	msg = parseMessage(t, content)
	params := mediaType(
		t, msg.Header.Get("Content-Type"), "multipart/alternative",
	)
	boundary = params["boundary"]
	assert.Assert(t, boundary != "", "multipart message missing boundary")
	partReader = multipart.NewReader(msg.Body, boundary)
	return
}

// AssertNextPart checks the next part's media type and decoded content.
//
// multipart.Reader hides a quoted-printable Content-Transfer-Encoding header
// and decodes the body transparently, so the header should appear empty.
func AssertNextPart(
	t *testing.T, reader *multipart.Reader, expectedType, decoded string,
) {
	t.Helper()

	part, err := reader.NextPart()
	assert.NilError(t, err, "couldn't parse message part")
	mediaType(t, part.Header.Get("Content-Type"), expectedType)
	assert.Assert(t, is.Equal("", part.Header.Get(contentTransferEncoding)))
	AssertDecodedContent(t, part, decoded)
}

type TestHeader struct {
	mail.Header
}

func (th *TestHeader) Assert(t *testing.T, name string, expected string) {
	t.Helper()
	assert.Check(t, is.Equal(expected, th.Get(name)), "%s header", name)
}

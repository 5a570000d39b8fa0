package email

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/textproto"
)

// Message is a single email to a single recipient.
//
// If HtmlBody is empty, the message is sent as text/plain only.
type Message struct {
	From     string
	To       string
	Subject  string
	TextBody string
	HtmlBody string
}

var charsetUtf8 = map[string]string{"charset": "utf-8"}
var textContentType = mime.FormatMediaType("text/plain", charsetUtf8)
var htmlContentType = mime.FormatMediaType("text/html", charsetUtf8)

// Bytes renders msg as an RFC 5322 message with CRLF line endings and
// quoted-printable bodies.
func (msg *Message) Bytes() ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := msg.Emit(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (msg *Message) Emit(output io.Writer) error {
	w := &writer{buf: output}

	w.WriteLine("From: " + msg.From)
	w.WriteLine("To: " + msg.To)
	w.WriteLine("Subject: " + mime.QEncoding.Encode("utf-8", msg.Subject))
	w.WriteLine("MIME-Version: 1.0")

	if len(msg.HtmlBody) == 0 {
		msg.emitTextOnly(w)
	} else {
		msg.emitMultipart(w)
	}
	return w.err
}

func (msg *Message) emitTextOnly(w *writer) {
	w.WriteLine("Content-Type: " + textContentType)
	w.WriteLine("Content-Transfer-Encoding: quoted-printable")
	w.WriteLine("")

	if w.err == nil {
		w.err = writeQuotedPrintable(w, convertToCrlf(msg.TextBody))
	}
}

func (msg *Message) emitMultipart(w *writer) {
	mpw := multipart.NewWriter(w)
	contentType := mime.FormatMediaType(
		"multipart/alternative",
		map[string]string{"boundary": mpw.Boundary()},
	)
	w.WriteLine("Content-Type: " + contentType)
	w.WriteLine("")

	h := textproto.MIMEHeader{}
	h.Add("Content-Transfer-Encoding", "quoted-printable")

	if w.err == nil {
		w.err = emitPart(mpw, h, textContentType, msg.TextBody)
	}
	if w.err == nil {
		w.err = emitPart(mpw, h, htmlContentType, msg.HtmlBody)
	}
	if w.err == nil {
		w.err = mpw.Close()
	}
}

func emitPart(
	w *multipart.Writer, h textproto.MIMEHeader, contentType, body string,
) error {
	h.Set("Content-Type", contentType)
	if pw, err := w.CreatePart(h); err != nil {
		return err
	} else {
		return writeQuotedPrintable(pw, convertToCrlf(body))
	}
}

func writeQuotedPrintable(w io.Writer, msg []byte) error {
	qpw := quotedprintable.NewWriter(w)
	_, err := qpw.Write(msg)
	return errors.Join(err, qpw.Close())
}

func convertToCrlf(s string) []byte {
	// Per 'man ascii':
	// - 0x0d == "\r"
	// - 0x0a == "\n"
	numLf := 0
	for i := range s {
		if s[i] == 0x0a {
			numLf++
		}
	}

	buf := make([]byte, len(s)+numLf)
	n := 0
	emitCr := true

	for i := range s {
		c := s[i]
		switch c {
		case 0x0a:
			if emitCr {
				buf[n] = 0x0d
				n++
			}
		default:
			emitCr = c != 0x0d
		}
		buf[n] = c
		n++
	}
	return buf[:n:n]
}

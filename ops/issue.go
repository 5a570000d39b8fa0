package ops

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// NewsletterIssue is the body of a POST /newsletters request.
type NewsletterIssue struct {
	Title   string       `json:"title"`
	Content IssueContent `json:"content"`
}

type IssueContent struct {
	Html string `json:"html"`
	Text string `json:"text"`
}

type issueFields struct {
	Title   *string `json:"title"`
	Content *struct {
		Html *string `json:"html"`
		Text *string `json:"text"`
	} `json:"content"`
}

// ParseNewsletterIssue decodes a single JSON issue, requiring every field to
// be present. Empty strings and unknown fields are allowed.
func ParseNewsletterIssue(r io.Reader) (*NewsletterIssue, error) {
	fields := &issueFields{}
	dec := json.NewDecoder(r)

	if err := dec.Decode(fields); err != nil {
		return nil, fmt.Errorf("%w: malformed issue: %w", ErrValidation, err)
	} else if _, err = dec.Token(); !errors.Is(err, io.EOF) {
		const errFmt = "%w: malformed issue: unexpected data after issue object"
		return nil, fmt.Errorf(errFmt, ErrValidation)
	}

	missing := make([]error, 0, 3)
	addMissing := func(name string) {
		missing = append(missing, errors.New("missing "+name))
	}
	if fields.Title == nil {
		addMissing("title")
	}
	if fields.Content == nil {
		addMissing("content")
	} else {
		if fields.Content.Html == nil {
			addMissing("content.html")
		}
		if fields.Content.Text == nil {
			addMissing("content.text")
		}
	}
	if err := errors.Join(missing...); err != nil {
		return nil, fmt.Errorf("%w: malformed issue: %w", ErrValidation, err)
	}

	return &NewsletterIssue{
		Title: *fields.Title,
		Content: IssueContent{
			Html: *fields.Content.Html, Text: *fields.Content.Text,
		},
	}, nil
}

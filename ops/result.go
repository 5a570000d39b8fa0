package ops

import (
	"fmt"
	"strings"
)

// RecipientIssue records why one recipient didn't receive a newsletter issue.
type RecipientIssue struct {
	SubscriberId string
	Email        string
	Reason       string
}

func (ri RecipientIssue) String() string {
	return fmt.Sprintf("%s (%s): %s", ri.Email, ri.SubscriberId, ri.Reason)
}

// PublishResult summarizes a newsletter fan-out.
//
// Skipped holds confirmed subscribers whose stored address no longer passes
// validation. Failed holds recipients for whom the single send attempt failed.
type PublishResult struct {
	NumSent int
	Skipped []RecipientIssue
	Failed  []RecipientIssue
}

func (r *PublishResult) String() string {
	sb := &strings.Builder{}
	fmt.Fprintf(
		sb, "sent: %d, skipped: %d, failed: %d",
		r.NumSent, len(r.Skipped), len(r.Failed),
	)
	for _, issue := range r.Skipped {
		sb.WriteString("\n  skipped: " + issue.String())
	}
	for _, issue := range r.Failed {
		sb.WriteString("\n  failed: " + issue.String())
	}
	return sb.String()
}

package events

import "github.com/mbland/optinlist/ops"

type CommandLineEventType string

const CommandLinePublishEvent = CommandLineEventType("Publish")

// CommandLineEvent is the payload the CLI sends when invoking the deployed
// Lambda function directly.
type CommandLineEvent struct {
	OptInListCommand CommandLineEventType `json:"optinlistCommand"`
	Publish          *PublishEvent        `json:"publish,omitempty"`
}

type PublishEvent struct {
	ops.NewsletterIssue
}

type PublishResponse struct {
	Success bool
	Result  *ops.PublishResult
	Details string
}

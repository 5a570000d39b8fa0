//go:build small_tests || all_tests

package handler

import (
	"encoding/json"
	"testing"

	awsevents "github.com/aws/aws-lambda-go/events"
	"github.com/mbland/optinlist/events"
	"github.com/mbland/optinlist/ops"
	"gotest.tools/assert"
)

func TestEventTypeStrings(t *testing.T) {
	assert.Equal(t, "Unexpected", UnexpectedEvent.String())
	assert.Equal(t, "Null", NullEvent.String())
	assert.Equal(t, "API Request", ApiRequest.String())
	assert.Equal(t, "Command Line", CommandLineEvent.String())
	assert.Equal(t, "Unknown", (UnexpectedEvent - 1).String())
}

func TestUnmarshalNullEventIsNop(t *testing.T) {
	e := Event{}

	err := e.UnmarshalJSON([]byte("null"))

	assert.NilError(t, err)
	assert.Equal(t, NullEvent, e.Type)
	assert.DeepEqual(t, Event{}, e)
}

func TestUnmarshalUnexpectedEventFails(t *testing.T) {
	e := Event{}

	err := e.UnmarshalJSON([]byte(`{ "foo": "bar" }`))

	assert.Equal(t, UnexpectedEvent, e.Type)
	assert.ErrorContains(t, err, `failed to parse unexpected event: { "foo"`)
}

const apiRequestJson = `{
	"version": "2.0",
	"routeKey": "POST /subscriptions",
	"rawPath": "/subscriptions"
}`

func TestUnmarshalApiRequest(t *testing.T) {
	e := Event{}

	err := json.Unmarshal([]byte(apiRequestJson), &e)

	assert.NilError(t, err)
	assert.DeepEqual(t, e, Event{
		Type: ApiRequest,
		ApiRequest: &awsevents.APIGatewayV2HTTPRequest{
			Version:  "2.0",
			RouteKey: "POST /subscriptions",
			RawPath:  "/subscriptions",
		},
	})
}

const commandLineEventJson = `{
	"optinlistCommand": "Publish",
	"publish": {
		"title": "Newsletter title",
		"content": {"html": "<p>body</p>", "text": "body"}
	}
}`

func TestUnmarshalCommandLineEvent(t *testing.T) {
	e := Event{}

	err := json.Unmarshal([]byte(commandLineEventJson), &e)

	assert.NilError(t, err)
	assert.DeepEqual(t, e, Event{
		Type: CommandLineEvent,
		CommandLineEvent: &events.CommandLineEvent{
			OptInListCommand: events.CommandLinePublishEvent,
			Publish: &events.PublishEvent{
				NewsletterIssue: ops.NewsletterIssue{
					Title: "Newsletter title",
					Content: ops.IssueContent{
						Html: "<p>body</p>",
						Text: "body",
					},
				},
			},
		},
	})
}

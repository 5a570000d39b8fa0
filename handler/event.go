package handler

import (
	"bytes"
	"encoding/json"
	"fmt"

	awsevents "github.com/aws/aws-lambda-go/events"
	"github.com/mbland/optinlist/events"
)

type EventType int

const (
	UnexpectedEvent EventType = iota - 1
	NullEvent
	ApiRequest
	CommandLineEvent
)

func (event EventType) String() string {
	switch event {
	case UnexpectedEvent:
		return "Unexpected"
	case NullEvent:
		return "Null"
	case ApiRequest:
		return "API Request"
	case CommandLineEvent:
		return "Command Line"
	}
	return "Unknown"
}

// Event is any payload the Lambda function may receive.
type Event struct {
	Type             EventType
	ApiRequest       *awsevents.APIGatewayV2HTTPRequest
	CommandLineEvent *events.CommandLineEvent
}

func (event *Event) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	} else if bytes.Contains(data, []byte(`"rawPath":`)) {
		event.Type = ApiRequest
		event.ApiRequest = &awsevents.APIGatewayV2HTTPRequest{}
		return json.Unmarshal(data, event.ApiRequest)
	} else if bytes.Contains(data, []byte(`"optinlistCommand":`)) {
		event.Type = CommandLineEvent
		event.CommandLineEvent = &events.CommandLineEvent{}
		return json.Unmarshal(data, event.CommandLineEvent)
	}
	event.Type = UnexpectedEvent
	return fmt.Errorf("failed to parse unexpected event: %s", data)
}

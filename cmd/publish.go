// Copyright © 2023 Mike Bland <mbland@acm.org>.
// See LICENSE.txt for details.

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	ltypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/mbland/optinlist/events"
	"github.com/mbland/optinlist/ops"
	"github.com/spf13/cobra"
)

const exampleIssueJson = `{
  "title": "Newsletter title",
  "content": {
    "html": "<p>Newsletter body as HTML</p>",
    "text": "Newsletter body as plain text"
  }
}`

const publishDescription = `` +
	`Reads a JSON object from standard input describing a newsletter issue:

` + exampleIssueJson + `

If the input contains every field, it invokes the Lambda function deployed by
the CloudFormation stack named by --stack-name to send the issue to every
confirmed subscriber, then reports how many recipients were sent, skipped, or
failed.`

func init() {
	rootCmd.AddCommand(
		newPublishCmd(NewCloudFormationClient, NewLambdaClient),
	)
}

func newPublishCmd(
	newCfnClient CloudFormationClientFactoryFunc,
	newLambdaClient LambdaClientFactoryFunc,
) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish a newsletter issue to confirmed subscribers",
		Long:  publishDescription,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			cmd.SilenceUsage = true
			var cfc CloudFormationClient
			var lc LambdaClient

			if cfc, err = newCfnClient(); err != nil {
				return
			} else if lc, err = newLambdaClient(); err != nil {
				return
			}
			return publishIssue(cmd, cfc, lc)
		},
	}
	registerStackName(cmd)
	return cmd
}

func publishIssue(
	cmd *cobra.Command, cfc CloudFormationClient, lc LambdaClient,
) (err error) {
	ctx := context.Background()
	stackName := getStackName(cmd)
	var issue *ops.NewsletterIssue
	var lambdaArn string

	if issue, err = ops.ParseNewsletterIssue(cmd.InOrStdin()); err != nil {
		return
	} else if lambdaArn, err = GetLambdaArn(ctx, cfc, stackName); err != nil {
		return
	}

	evt := &events.CommandLineEvent{
		OptInListCommand: events.CommandLinePublishEvent,
		Publish:          &events.PublishEvent{NewsletterIssue: *issue},
	}
	input := &lambda.InvokeInput{
		FunctionName: aws.String(lambdaArn),
		LogType:      ltypes.LogTypeTail,
		Payload:      mustMarshal(evt, "failed to marshal publish event"),
	}
	var output *lambda.InvokeOutput
	var response events.PublishResponse

	// https://docs.aws.amazon.com/lambda/latest/dg/invocation-sync.html
	if output, err = lc.Invoke(ctx, input); err != nil {
		err = fmt.Errorf("error invoking Lambda function: %w", err)
	} else if output.StatusCode != http.StatusOK {
		const errFmt = "received non-200 response from Lambda invocation: %s"
		err = fmt.Errorf(errFmt, http.StatusText(int(output.StatusCode)))
	} else if output.FunctionError != nil {
		const errFmt = "error executing Lambda function: %s: %s"
		funcErr := aws.ToString(output.FunctionError)
		err = fmt.Errorf(errFmt, funcErr, string(output.Payload))
	} else if err = json.Unmarshal(output.Payload, &response); err != nil {
		const errFmt = "failed to unmarshal Lambda response payload: %w: %s"
		err = fmt.Errorf(errFmt, err, string(output.Payload))
	} else if !response.Success {
		err = fmt.Errorf("publishing failed: %s", response.Details)
	} else if response.Result == nil {
		err = fmt.Errorf("publish response missing result: %s", output.Payload)
	} else {
		cmd.Printf("Published %q: %s\n", issue.Title, response.Result)
	}
	return
}

func mustMarshal(v any, panicMsg string) []byte {
	payload, err := json.Marshal(v)
	if err != nil {
		panic(panicMsg + ": " + err.Error())
	}
	return payload
}

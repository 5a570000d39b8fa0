package main

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/mbland/optinlist/handler"
)

func buildHandler(ctx context.Context) (*handler.Handler, error) {
	logger := log.Default()

	if opts, err := handler.GetOptions(os.Getenv); err != nil {
		return nil, err
	} else if pa, _, err := handler.NewProdAgent(
		ctx, opts, handler.LoadDefaultAwsConfig, logger,
	); err != nil {
		return nil, err
	} else {
		return handler.NewHandler(pa, logger), nil
	}
}

func main() {
	// Disable standard logger flags. The CloudWatch logs show that the Lambda
	// runtime already adds a timestamp at the beginning of every log line
	// emitted by the function.
	log.SetFlags(0)

	if h, err := buildHandler(context.Background()); err != nil {
		log.Fatalf("Failed to initialize process: %s", err.Error())
	} else {
		lambda.Start(h.HandleEvent)
	}
}

package cmd

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/mbland/optinlist/db"
	"github.com/mbland/optinlist/ops"
)

// FunctionArnKey is the CloudFormation stack output holding the ARN of the
// deployed Lambda function.
const FunctionArnKey = "FunctionArn"

func loadAwsConfig() (aws.Config, error) {
	cfg, err := config.LoadDefaultConfig(context.Background())
	if err != nil {
		err = fmt.Errorf("failed to load AWS config: %w", err)
	}
	return cfg, err
}

type DynamoDbFactoryFunc func(tableName string) (*db.DynamoDb, error)

func NewDynamoDb(tableName string) (*db.DynamoDb, error) {
	cfg, err := loadAwsConfig()
	if err != nil {
		return nil, err
	}
	return db.NewDynamoDb(cfg, tableName), nil
}

type LambdaClient interface {
	Invoke(
		context.Context,
		*lambda.InvokeInput,
		...func(*lambda.Options),
	) (*lambda.InvokeOutput, error)
}

type LambdaClientFactoryFunc func() (LambdaClient, error)

func NewLambdaClient() (LambdaClient, error) {
	cfg, err := loadAwsConfig()
	if err != nil {
		return nil, err
	}
	return lambda.NewFromConfig(cfg), nil
}

type CloudFormationClient interface {
	DescribeStacks(
		context.Context,
		*cloudformation.DescribeStacksInput,
		...func(*cloudformation.Options),
	) (*cloudformation.DescribeStacksOutput, error)
}

type CloudFormationClientFactoryFunc func() (CloudFormationClient, error)

func NewCloudFormationClient() (CloudFormationClient, error) {
	cfg, err := loadAwsConfig()
	if err != nil {
		return nil, err
	}
	return cloudformation.NewFromConfig(cfg), nil
}

// GetLambdaArn returns the FunctionArnKey output of stackName.
func GetLambdaArn(
	ctx context.Context, cfc CloudFormationClient, stackName string,
) (arn string, err error) {
	input := &cloudformation.DescribeStacksInput{
		StackName: aws.String(stackName),
	}
	var output *cloudformation.DescribeStacksOutput

	if output, err = cfc.DescribeStacks(ctx, input); err != nil {
		err = ops.AwsError("failed to get Lambda ARN for "+stackName, err)
		return
	} else if len(output.Stacks) == 0 {
		err = fmt.Errorf("stack not found: %s", stackName)
		return
	}

	for _, output := range output.Stacks[0].Outputs {
		if aws.ToString(output.OutputKey) == FunctionArnKey {
			return aws.ToString(output.OutputValue), nil
		}
	}
	const errFmt = `stack "%s" doesn't contain output key "%s"`
	return "", fmt.Errorf(errFmt, stackName, FunctionArnKey)
}

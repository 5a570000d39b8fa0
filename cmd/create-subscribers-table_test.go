//go:build small_tests || all_tests

package cmd

import (
	"errors"
	"fmt"
	"testing"

	"github.com/mbland/optinlist/db"
	"github.com/mbland/optinlist/testutils"
	"gotest.tools/assert"
)

func TestCreateSubscribersTable(t *testing.T) {
	const TableName = "optinlist-subscribers"

	setup := func() (*CommandTestFixture, *db.TestDynamoDbClient) {
		client := db.NewTestDynamoDbClient()
		f := NewCommandTestFixture(
			newCreateSubscribersTableCmd(
				func(tableName string) (*db.DynamoDb, error) {
					return &db.DynamoDb{Client: client, TableName: tableName}, nil
				},
			),
		)
		f.Cmd.SetArgs([]string{TableName})
		return f, client
	}

	t.Run("Succeeds", func(t *testing.T) {
		f, client := setup()

		err := f.Cmd.Execute()

		assert.NilError(t, err)
		assert.Assert(t, f.Cmd.SilenceUsage == true)
		const outFmt = "Successfully created DynamoDB table: %s\n"
		assert.Equal(t, fmt.Sprintf(outFmt, TableName), f.Stdout.String())
		assert.Equal(t, "", f.Stderr.String())
		testutils.AssertAwsStringEqual(
			t, TableName, client.CreateTableInput.TableName,
		)
	})

	t.Run("FailsOnDynamoDbClientError", func(t *testing.T) {
		f, client := setup()
		client.CreateTableErr = testutils.AwsServerError("create table error")

		f.ExecuteAndAssertErrorContains(t, "create table error")
		assert.Equal(t, "", f.Stdout.String())
	})

	t.Run("FailsIfFactoryFails", func(t *testing.T) {
		f := NewCommandTestFixture(
			newCreateSubscribersTableCmd(func(string) (*db.DynamoDb, error) {
				return nil, errors.New("failed to load AWS config")
			}),
		)
		f.Cmd.SetArgs([]string{TableName})

		f.ExecuteAndAssertErrorContains(t, "failed to load AWS config")
	})

	t.Run("FailsWithoutTableName", func(t *testing.T) {
		f, _ := setup()
		f.Cmd.SetArgs([]string{})

		f.ExecuteAndAssertErrorContains(t, "accepts 1 arg(s), received 0")
	})
}

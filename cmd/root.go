// Copyright © 2023 Mike Bland <mbland@acm.org>.
// See LICENSE.txt for details.

package cmd

import (
	"github.com/spf13/cobra"
)

const optinlistDesc = "Double opt-in mailing list with newsletter publishing"
const optinlistDescLong = optinlistDesc + `

To run the API locally against a SQLite database:
  optinlist serve --env-file .env

To create a DynamoDB table:
  optinlist create-subscribers-table <TABLE_NAME>

To see an example of the newsletter issue input JSON structure:
  optinlist publish --help

To publish an issue to every confirmed subscriber via the deployed Lambda
function, where ` + "`generate-issue`" + ` is any program that creates issue
input JSON:
  generate-issue | optinlist publish -s <STACK_NAME>
`

var rootCmd = &cobra.Command{
	Use:     "optinlist",
	Version: "v0.1.0",
	Short:   optinlistDesc,
	Long:    optinlistDescLong,
}

func Execute() error {
	return rootCmd.Execute()
}

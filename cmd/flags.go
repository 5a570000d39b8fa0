package cmd

import "github.com/spf13/cobra"

const FlagStackName = "stack-name"
const FlagEnvFile = "env-file"
const FlagAddr = "addr"

func registerStackName(cmd *cobra.Command) {
	cmd.Flags().StringP(
		FlagStackName, "s", "",
		"name of the target optinlist CloudFormation stack",
	)
	cmd.MarkFlagRequired(FlagStackName)
}

func getStackName(cmd *cobra.Command) string {
	return getStringFlag(cmd, FlagStackName)
}

func registerEnvFile(cmd *cobra.Command) {
	cmd.Flags().StringP(
		FlagEnvFile, "e", "",
		"dotenv file supplying configuration variables missing from the "+
			"environment",
	)
}

func getEnvFile(cmd *cobra.Command) string {
	return getStringFlag(cmd, FlagEnvFile)
}

func registerAddr(cmd *cobra.Command) {
	cmd.Flags().StringP(
		FlagAddr, "a", ":8000", "host:port on which to serve the API",
	)
}

func getAddr(cmd *cobra.Command) string {
	return getStringFlag(cmd, FlagAddr)
}

func getStringFlag(cmd *cobra.Command, flagName string) (value string) {
	if f := cmd.Flag(flagName); f != nil {
		value = f.Value.String()
	}
	return
}

package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved analyses of a database",
	Long:  "List the analyses saved for --database-id, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		helper, err := NewCommandHelper(cmd)
		if err != nil {
			return err
		}
		defer helper.Close()

		p, err := helper.OpenProvider(cmd.Context())
		if err != nil {
			return err
		}
		defer p.Close()

		list, err := helper.NewService(p).List(cmd.Context(), helper.cfg.DatabaseID)
		if err != nil {
			return err
		}

		output, _ := cmd.Flags().GetString("output")
		if useJSON(output, os.Stdout) {
			return printJSON(os.Stdout, list)
		}
		printList(os.Stdout, helper.cfg.DatabaseID, list)
		return nil
	},
}

func init() {
	listCmd.Flags().StringP("output", "o", "auto", "输出格式 auto|json|text")
}

package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <analysis-id>",
	Short: "Show a saved analysis",
	Args:  cobra.ExactArgs(1),
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

		result, err := helper.NewService(p).Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		output, _ := cmd.Flags().GetString("output")
		if useJSON(output, os.Stdout) {
			return printJSON(os.Stdout, result)
		}
		printAnalysis(os.Stdout, result)
		return nil
	},
}

func init() {
	showCmd.Flags().StringP("output", "o", "auto", "输出格式 auto|json|text")
}

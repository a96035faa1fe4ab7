package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bryanchriswhite/vppstage/internal/engine"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show engine capabilities",
	Long:  `Show the operations, value ranges and pixel formats the filter engine supports.`,
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	eng := engine.NewSoftware()

	fmt.Println("Supported operations:")
	for _, op := range eng.SupportedOps() {
		if op.Min != op.Max {
			fmt.Printf("  %-16s  range [%g, %g], default %g\n", op.Name, op.Min, op.Max, op.Default)
		} else {
			fmt.Printf("  %-16s\n", op.Name)
		}
	}

	fmt.Println("\nSupported formats:")
	for _, f := range eng.SupportedFormats() {
		fmt.Printf("  %s\n", f)
	}
	return nil
}

package main

import (
	"fmt"

	"github.com/enetx/hfsm/internal/traffic"
	"github.com/spf13/cobra"
)

var dotCmd = &cobra.Command{
	Use:   "dot",
	Short: "Print the traffic light as Graphviz DOT",
	Long:  `Prints the definition in DOT format. Pipe it to "dot -Tsvg" to render it.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, err := fmt.Fprint(cmd.OutOrStdout(), traffic.Definition().ToDOT())
		return err
	},
}

func init() {
	rootCmd.AddCommand(dotCmd)
}

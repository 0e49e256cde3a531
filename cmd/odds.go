package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var oddsCmd = &cobra.Command{
	Use:   "odds",
	Short: "各トレイトの出現確率を一覧表示します",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := loadDefinition(appCfg)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "CATEGORY\tOPTION\tWEIGHT\tPROBABILITY\n")
		for _, cat := range def.Categories {
			for i, opt := range cat.Options {
				fmt.Fprintf(w, "%s\t%s\t%d\t%6.2f%%\n", cat.Name, opt.Name, opt.Weight, cat.Probability(i)*100)
			}
		}
		return w.Flush()
	},
}

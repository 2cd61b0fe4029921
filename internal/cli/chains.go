package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mrz1836/tether/internal/chains"
	"github.com/mrz1836/tether/internal/output"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var chainsCmd = &cobra.Command{
	Use:   "chains",
	Short: "List known networks",
	Long: `List the networks tether knows by name. Other chain IDs can still be
passed to --switch-chain; the wallet decides whether it supports them.`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return printChains(formatter)
	},
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(chainsCmd)
}

func printChains(f *output.Formatter) error {
	all := chains.All()
	if f.IsMachine() {
		return f.Print(all)
	}

	table := output.NewTable("ID", "Hex", "Name", "Currency", "RPC")
	for _, c := range all {
		table.AddRow(strconv.FormatUint(c.ID, 10), c.HexID(), c.Name, c.Currency, c.RPCURL)
	}
	return table.Render(f.Writer())
}

package cmd

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"firestige.xyz/otusdpi/plugins/dissector/iris"
)

var protocolsVocabulary string

var protocolsCmd = &cobra.Command{
	Use:   "protocols",
	Short: "List the dissectors this build can schedule",
	Long: `List the registered dissectors with their protocol id and packet selection.
Dissectors disabled in the config are not registered and not listed.

Examples:
  otus-dpi protocols
  otus-dpi protocols --vocabulary iris`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if protocolsVocabulary != "" {
			return printVocabulary(cmd, protocolsVocabulary)
		}
		return printProtocols(cmd)
	},
}

func init() {
	protocolsCmd.Flags().StringVar(&protocolsVocabulary, "vocabulary", "",
		"print the message types a dissector recognises (iris)")
}

func printProtocols(cmd *cobra.Command) error {
	reg, err := newRegistry(cfg.Engine)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Name", "Selection"})
	for _, r := range reg.List() {
		t.AppendRow(table.Row{r.ID, r.Name, r.Selection.String()})
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), t.Render())
	return err
}

func printVocabulary(cmd *cobra.Command, name string) error {
	if !strings.EqualFold(name, iris.Name) {
		return fmt.Errorf("no vocabulary for dissector %q", name)
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Code", "Mnemonic", "Message type"})
	for _, mt := range iris.Vocabulary() {
		t.AppendRow(table.Row{uint16(mt), mt.Mnemonic(), mt.String()})
	}
	t.AppendFooter(table.Row{"", "total", len(iris.Vocabulary())})
	_, err := fmt.Fprintln(cmd.OutOrStdout(), t.Render())
	return err
}

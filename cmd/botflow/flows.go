package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/aretw0/botflow/pkg/domain"
	"github.com/aretw0/botflow/pkg/flowfile"
	"github.com/spf13/cobra"
)

var flowsCmd = &cobra.Command{
	Use:   "flows",
	Short: "List, show, import and export stored flows",
}

var flowsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored flows, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openBackends()
		if err != nil {
			return err
		}
		defer b.Close()

		flows, err := b.Flows.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list flows: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(flows) == 0 {
			fmt.Fprintln(out, "No flows stored.")
			return nil
		}

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tBLOCKS\tCONNECTIONS")
		for _, sf := range flows {
			stats := sf.FlowData.Stats()
			fmt.Fprintf(tw, "%d\t%s\t%d\t%d\n", sf.ID, sf.Name, stats.TotalBlocks, stats.TotalConnections)
		}
		return tw.Flush()
	},
}

var flowsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a stored flow",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sf, err := loadStored(cmd, args[0])
		if err != nil {
			return err
		}
		return writeFlow(cmd, *sf, "")
	},
}

var flowsExportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Write a stored flow to a file or stdout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sf, err := loadStored(cmd, args[0])
		if err != nil {
			return err
		}
		output, _ := cmd.Flags().GetString("output")
		return writeFlow(cmd, *sf, output)
	},
}

var flowsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Store a flow file as a new flow",
	Long: `Reads a JSON or YAML flow file and stores it as a new flow, which becomes the
editor's current document. Use --name to override the name in the file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := flowfile.Load(args[0])
		if err != nil {
			return err
		}
		if name, _ := cmd.Flags().GetString("name"); name != "" {
			doc.Name = name
		}

		b, err := openBackends()
		if err != nil {
			return err
		}
		defer b.Close()

		sf, err := b.Flows.Create(cmd.Context(), doc.Name, doc.FlowData)
		if err != nil {
			return fmt.Errorf("failed to store flow: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported '%s' as flow %d\n", sf.Name, sf.ID)
		return nil
	},
}

func loadStored(cmd *cobra.Command, arg string) (*domain.StoredFlow, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id < 1 {
		return nil, fmt.Errorf("invalid flow id %q", arg)
	}

	b, err := openBackends()
	if err != nil {
		return nil, err
	}
	defer b.Close()

	sf, err := b.Flows.Get(cmd.Context(), id)
	if err != nil {
		return nil, fmt.Errorf("failed to load flow %d: %w", id, err)
	}
	return sf, nil
}

// writeFlow saves sf to path, or prints it in --format when path is empty.
func writeFlow(cmd *cobra.Command, sf domain.StoredFlow, path string) error {
	if path != "" {
		if err := flowfile.Save(path, sf); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote flow %d to %s\n", sf.ID, path)
		return nil
	}

	name, _ := cmd.Flags().GetString("format")
	format, err := flowfile.ParseFormat(name)
	if err != nil {
		return err
	}
	data, err := flowfile.Encode(sf, format)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func init() {
	rootCmd.AddCommand(flowsCmd)
	flowsCmd.AddCommand(flowsLsCmd, flowsShowCmd, flowsImportCmd, flowsExportCmd)

	for _, c := range []*cobra.Command{flowsShowCmd, flowsExportCmd} {
		c.Flags().StringP("format", "f", string(flowfile.FormatJSON), "Output format: json or yaml")
	}
	flowsExportCmd.Flags().StringP("output", "o", "", "Write to this file; the extension picks the format")
	flowsImportCmd.Flags().String("name", "", "Name of the stored flow")
}


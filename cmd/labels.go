package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/rubiojr/convos/pkg/storage"
)

// LabelsCommand creates the labels command with list/add subcommands
func LabelsCommand() *cli.Command {
	return &cli.Command{
		Name:  "labels",
		Usage: "Manage flow labels",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List flow labels",
				Action: func(ctx context.Context, c *cli.Command) error {
					return listLabels(c.String("config"))
				},
			},
			{
				Name:      "add",
				Usage:     "Add a flow label",
				ArgsUsage: "<id> <name>",
				Action: func(ctx context.Context, c *cli.Command) error {
					return addLabel(c.String("config"), c.Args().Slice())
				},
			},
		},
	}
}

func listLabels(configPath string) error {
	_, st, err := openStorage(configPath)
	if err != nil {
		return err
	}
	defer closeStorage(st)

	labels, err := st.ListFlowLabels()
	if err != nil {
		return fmt.Errorf("listing flow labels: %w", err)
	}

	if len(labels) == 0 {
		fmt.Println("No flow labels defined")
		return nil
	}
	for _, l := range labels {
		fmt.Printf("%d\t%s\n", l.ID, l.Name)
	}
	return nil
}

func addLabel(configPath string, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: labels add <id> <name>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid label id %q: %w", args[0], err)
	}

	_, st, err := openStorage(configPath)
	if err != nil {
		return err
	}
	defer closeStorage(st)

	if err := st.StoreFlowLabel(storage.FlowLabel{ID: id, Name: args[1]}); err != nil {
		return fmt.Errorf("storing flow label: %w", err)
	}
	fmt.Printf("Flow label %d (%s) stored\n", id, args[1])
	return nil
}

package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/rubiojr/convos/pkg/storage"
)

// GroupsCommand creates the groups command with list/add/add-member subcommands
func GroupsCommand() *cli.Command {
	return &cli.Command{
		Name:  "groups",
		Usage: "Manage contact groups",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List groups",
				Action: func(ctx context.Context, c *cli.Command) error {
					return listGroups(c.String("config"))
				},
			},
			{
				Name:      "add",
				Usage:     "Add a group",
				ArgsUsage: "<id> <label>",
				Action: func(ctx context.Context, c *cli.Command) error {
					return addGroup(c.String("config"), c.Args().Slice())
				},
			},
			{
				Name:      "add-member",
				Usage:     "Add a contact to a group",
				ArgsUsage: "<contact-id> <group-id>",
				Action: func(ctx context.Context, c *cli.Command) error {
					return addMember(c.String("config"), c.Args().Slice())
				},
			},
		},
	}
}

func listGroups(configPath string) error {
	_, st, err := openStorage(configPath)
	if err != nil {
		return err
	}
	defer closeStorage(st)

	groups, err := st.ListGroups()
	if err != nil {
		return fmt.Errorf("listing groups: %w", err)
	}

	if len(groups) == 0 {
		fmt.Println("No groups defined")
		return nil
	}
	for _, g := range groups {
		fmt.Printf("%d\t%s\n", g.ID, g.Label)
	}
	return nil
}

func addGroup(configPath string, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: groups add <id> <label>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid group id %q: %w", args[0], err)
	}

	_, st, err := openStorage(configPath)
	if err != nil {
		return err
	}
	defer closeStorage(st)

	if err := st.StoreGroup(storage.Group{ID: id, Label: args[1]}); err != nil {
		return fmt.Errorf("storing group: %w", err)
	}
	fmt.Printf("Group %d (%s) stored\n", id, args[1])
	return nil
}

func addMember(configPath string, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: groups add-member <contact-id> <group-id>")
	}
	contactID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid contact id %q: %w", args[0], err)
	}
	groupID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid group id %q: %w", args[1], err)
	}

	_, st, err := openStorage(configPath)
	if err != nil {
		return err
	}
	defer closeStorage(st)

	if err := st.AddContactToGroup(contactID, groupID); err != nil {
		return fmt.Errorf("adding member: %w", err)
	}
	fmt.Printf("Contact %d added to group %d\n", contactID, groupID)
	return nil
}

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/rubiojr/convos/pkg/archive"
)

// ImportCommand creates the import command
func ImportCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import messages from a compressed archive",
		ArgsUsage: "<file>",
		Action: func(ctx context.Context, c *cli.Command) error {
			return importArchive(c.String("config"), c.Args().First())
		},
	}
}

func importArchive(configPath, inPath string) error {
	if inPath == "" {
		return fmt.Errorf("usage: import <file>")
	}

	_, st, err := openStorage(configPath)
	if err != nil {
		return err
	}
	defer closeStorage(st)

	f, err := os.Open(inPath)
	if err != nil {
		return fmt.Errorf("opening archive file: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			fmt.Printf("Warning: failed to close archive file: %v\n", err)
		}
	}()

	n, err := archive.Import(st, f)
	if err != nil {
		return fmt.Errorf("importing archive: %w", err)
	}

	fmt.Printf("Imported %d messages from %s\n", n, inPath)
	return nil
}

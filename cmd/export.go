package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/rubiojr/convos/pkg/archive"
)

// ExportCommand creates the export command
func ExportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Export the message store to a compressed archive",
		ArgsUsage: "<file>",
		Action: func(ctx context.Context, c *cli.Command) error {
			return exportArchive(c.String("config"), c.Args().First())
		},
	}
}

func exportArchive(configPath, outPath string) error {
	if outPath == "" {
		return fmt.Errorf("usage: export <file>")
	}

	_, st, err := openStorage(configPath)
	if err != nil {
		return err
	}
	defer closeStorage(st)

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating archive file: %w", err)
	}

	if err := archive.Export(st, f); err != nil {
		_ = f.Close()
		return fmt.Errorf("exporting archive: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing archive file: %w", err)
	}

	fmt.Printf("Exported to %s\n", outPath)
	return nil
}

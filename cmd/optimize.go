package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// OptimizeCommand creates the optimize command
func OptimizeCommand() *cli.Command {
	return &cli.Command{
		Name:  "optimize",
		Usage: "Optimize the database",
		Action: func(ctx context.Context, c *cli.Command) error {
			return optimizeStorage(c.String("config"))
		},
	}
}

func optimizeStorage(configPath string) error {
	_, st, err := openStorage(configPath)
	if err != nil {
		return err
	}
	defer closeStorage(st)

	if err := st.Optimize(); err != nil {
		return fmt.Errorf("optimizing database: %w", err)
	}
	fmt.Println("Database optimized")
	return nil
}

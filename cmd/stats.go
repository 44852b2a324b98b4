package cmd

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/urfave/cli/v3"
)

// StatsCommand creates the stats command
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show storage statistics",
		Action: func(ctx context.Context, c *cli.Command) error {
			return showStats(c.String("config"))
		},
	}
}

// showStats displays storage statistics
func showStats(configPath string) error {
	_, st, err := openStorage(configPath)
	if err != nil {
		return err
	}
	defer closeStorage(st)

	stats, err := st.GetStats()
	if err != nil {
		return fmt.Errorf("getting stats: %w", err)
	}

	formatStats(stats)
	return nil
}

func formatStats(stats map[string]interface{}) {
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		switch v := stats[k].(type) {
		case time.Time:
			fmt.Printf("%-20s %s\n", k+":", v.Format("2006-01-02 15:04:05"))
		default:
			fmt.Printf("%-20s %v\n", k+":", v)
		}
	}
}

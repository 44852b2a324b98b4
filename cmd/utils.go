package cmd

import (
	"fmt"

	"github.com/rubiojr/convos/pkg/config"
	"github.com/rubiojr/convos/pkg/storage"
)

// openStorage loads the configuration and opens the message store. Callers
// must Close the returned storage.
func openStorage(configPath string) (*config.Config, *storage.Storage, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	st, err := storage.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening storage: %w", err)
	}

	return cfg, st, nil
}

func closeStorage(st *storage.Storage) {
	if err := st.Close(); err != nil {
		fmt.Printf("Warning: failed to close storage: %v\n", err)
	}
}

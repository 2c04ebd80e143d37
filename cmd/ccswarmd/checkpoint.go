package main

import (
	"fmt"

	"github.com/kadirpekel/ccswarmd/pkg/checkpoint"
)

// CheckpointsCmd lists or inspects checkpoints recorded for a session.
// serve saves one automatically whenever a session is removed; this is
// the read path against that same on-disk store, usable whether or not
// a daemon is currently running.
type CheckpointsCmd struct {
	Session string `arg:"" help:"Session id to list checkpoints for."`
	Show    string `help:"Load and print the checkpoint with this id instead of listing."`
}

func (c *CheckpointsCmd) Run(cli *CLI) error {
	cfg, err := loadServeConfig(cli)
	if err != nil {
		return err
	}

	store, err := checkpoint.NewStore(&cfg.Checkpoint)
	if err != nil {
		return fmt.Errorf("open checkpoint store: %w", err)
	}
	defer store.Close()

	if c.Show != "" {
		ckpt, err := store.Load(c.Show)
		if err != nil {
			return err
		}
		fmt.Printf("id: %s\nsession: %s\nlabel: %s\ncreated_at: %s\nstate_bytes: %d\n",
			ckpt.ID, ckpt.SessionID, ckpt.Label, ckpt.CreatedAt.Format("2006-01-02T15:04:05Z07:00"), len(ckpt.State))
		return nil
	}

	ids := store.ListForSession(c.Session)
	if len(ids) == 0 {
		fmt.Println("no checkpoints recorded for this session")
		return nil
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}

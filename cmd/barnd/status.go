package main

import (
	"fmt"

	"github.com/samson-media/barn"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the current admission state of the job store",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	svc, err := barn.New(cfg.ServiceConfig())
	if err != nil {
		return fmt.Errorf("constructing barn service: %w", err)
	}

	st, err := svc.Status()
	if err != nil {
		return fmt.Errorf("reading status: %w", err)
	}

	fmt.Printf("queued: %d\n", st.QueuedTotal)
	fmt.Printf("%-8s running/limit\n", "level")
	fmt.Printf("%-8s %d/%d\n", "high", st.High.Running, st.High.Limit)
	fmt.Printf("%-8s %d/%d\n", "medium", st.Medium.Running, st.Medium.Limit)
	fmt.Printf("%-8s %d/%d\n", "low", st.Low.Running, st.Low.Limit)
	return nil
}

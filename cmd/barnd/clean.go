package main

import (
	"fmt"

	"github.com/samson-media/barn"
	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete terminal jobs whose retention window has elapsed",
	RunE:  runClean,
}

func runClean(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	svc, err := barn.New(cfg.ServiceConfig())
	if err != nil {
		return fmt.Errorf("constructing barn service: %w", err)
	}

	deleted, err := svc.Clean()
	fmt.Printf("deleted %d job(s)\n", deleted)
	if err != nil {
		return fmt.Errorf("cleanup reported errors: %w", err)
	}
	return nil
}

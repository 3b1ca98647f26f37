package main

import (
	"fmt"

	"github.com/samson-media/barn"
	"github.com/samson-media/barn/internal/lifecycle"
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the barnd daemon in the foreground",
	RunE:  runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	svc, err := barn.New(cfg.ServiceConfig())
	if err != nil {
		return fmt.Errorf("constructing barn service: %w", err)
	}

	manager := lifecycle.NewSimpleComponentManager()
	manager.Register(svc.AsComponent())

	fmt.Println("barnd starting")
	if err := manager.StartAll(); err != nil {
		return fmt.Errorf("starting barnd: %w", err)
	}

	manager.Wait()
	fmt.Println("barnd stopped")
	return nil
}

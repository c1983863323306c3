package main

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var cleanOlderThan int

var cleanCacheCmd = &cobra.Command{
	Use:   "clean-cache",
	Short: "Clean the uv download cache",
	RunE:  runCleanCache,
}

func init() {
	cleanCacheCmd.Flags().IntVar(&cleanOlderThan, "older-than", 0, "Only remove files older than this many days")
}

func runCleanCache(cmd *cobra.Command, args []string) error {
	before, err := cacheMgr.Size()
	if err != nil {
		return fmt.Errorf("size cache: %w", err)
	}
	fmt.Printf("Current cache size: %s\n", humanize.Bytes(uint64(before)))

	if cleanOlderThan > 0 {
		fmt.Printf("Cleaning cache files older than %d days...\n", cleanOlderThan)
	} else {
		fmt.Println("Cleaning all cache files...")
	}

	freed, ok := cacheMgr.Clean(cleanOlderThan)
	if !ok {
		return errors.New("failed to clean cache")
	}

	fmt.Printf("Freed %s of space.\n", humanize.Bytes(uint64(freed)))
	fmt.Printf("New cache size: %s\n", humanize.Bytes(uint64(before-freed)))
	return nil
}

package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install uv using the official installation script",
	RunE:  runInstall,
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update uv to the latest version",
	RunE:  runUpdate,
}

var listPythonCmd = &cobra.Command{
	Use:   "list-python",
	Short: "List Python versions available through uv",
	RunE:  runListPython,
}

var installPythonCmd = &cobra.Command{
	Use:   "install-python [version]",
	Short: "Install a Python version (latest if omitted)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInstallPython,
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show uv version, Python versions, and cache information",
	RunE:  runInfo,
}

func runInstall(cmd *cobra.Command, args []string) error {
	report := tool.Install(ctx)
	switch {
	case report.AlreadyInstalled:
		fmt.Printf("uv is already installed (version %s)\n", report.Version)
		return nil
	case report.OK:
		fmt.Printf("uv installed successfully (version %s)\n", report.Version)
		return nil
	case report.NotOnPath:
		fmt.Println("uv was installed but is not in your PATH.")
		fmt.Println("You may need to restart your terminal or add the installation directory to your PATH.")
		if report.PathHint != "" {
			fmt.Printf("Found uv at: %s\n", report.PathHint)
			fmt.Printf("Add this directory to your PATH: %s\n", filepath.Dir(report.PathHint))
		}
		return errors.New("uv is not in PATH")
	default:
		return errors.New("failed to install uv")
	}
}

func runUpdate(cmd *cobra.Command, args []string) error {
	report := tool.Update(ctx)
	switch {
	case report.AlreadyInstalled && report.OK:
		fmt.Println("uv is already at the latest version.")
		return nil
	case report.OK:
		fmt.Printf("uv updated successfully (version %s)\n", report.Version)
		return nil
	case report.NotOnPath:
		fmt.Println("uv was installed but is not in your PATH.")
		fmt.Println("You may need to restart your terminal or add the installation directory to your PATH.")
		if report.PathHint != "" {
			fmt.Printf("Found uv at: %s\n", report.PathHint)
		}
		return errors.New("uv is not in PATH")
	default:
		return errors.New("failed to update uv")
	}
}

func runListPython(cmd *cobra.Command, args []string) error {
	fmt.Println("Available Python versions:")
	if !tool.ListPythons(ctx) {
		return errors.New("failed to list python versions (is uv installed?)")
	}
	return nil
}

func runInstallPython(cmd *cobra.Command, args []string) error {
	version := ""
	if len(args) > 0 {
		version = args[0]
	}
	if version == "" {
		fmt.Println("Installing the latest Python version...")
	} else {
		fmt.Printf("Installing Python %s...\n", version)
	}
	if !tool.InstallPython(ctx, version) {
		return errors.New("failed to install python")
	}
	fmt.Println("Python installed successfully.")
	return nil
}

func runInfo(cmd *cobra.Command, args []string) error {
	version, ok := tool.Version(ctx)
	if !ok {
		return errors.New("uv is not installed; run 'uvman install' first")
	}

	fmt.Println("UV Information:")
	fmt.Printf("Version: %s\n", version)

	fmt.Println("\nPython Versions:")
	tool.ListPythons(ctx)

	size, err := cacheMgr.Size()
	if err != nil {
		return fmt.Errorf("size cache: %w", err)
	}
	fmt.Println("\nCache Information:")
	fmt.Printf("Cache directory: %s\n", cacheMgr.Root())
	fmt.Printf("Cache size: %s\n", humanize.Bytes(uint64(size)))

	fmt.Println("\nFor more information, visit: https://github.com/astral-sh/uv")
	return nil
}

package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"uvman/internal/venv"
)

var (
	createPython  string
	createTimeout int
	createRetries int

	depsRequirements string
	depsPackages     []string
	depsDev          bool
	depsNoParallel   bool

	editableNoParallel bool
)

var createVenvCmd = &cobra.Command{
	Use:   "create-venv <path>",
	Short: "Create a virtual environment",
	Args:  cobra.ExactArgs(1),
	RunE:  runCreateVenv,
}

var installDepsCmd = &cobra.Command{
	Use:   "install-deps <venv_path>",
	Short: "Install dependencies into a virtual environment",
	Args:  cobra.ExactArgs(1),
	RunE:  runInstallDeps,
}

var installEditableCmd = &cobra.Command{
	Use:   "install-editable <venv_path> <project_path>",
	Short: "Install a project in editable mode",
	Args:  cobra.ExactArgs(2),
	RunE:  runInstallEditable,
}

func init() {
	createVenvCmd.Flags().StringVar(&createPython, "python", "", "Python version to use")
	createVenvCmd.Flags().IntVar(&createTimeout, "timeout", 0, "Timeout in seconds per attempt (default from config)")
	createVenvCmd.Flags().IntVar(&createRetries, "retries", 0, "Number of retry attempts (default from config)")

	installDepsCmd.Flags().StringVar(&depsRequirements, "requirements", "", "Path to a requirements file")
	installDepsCmd.Flags().StringSliceVar(&depsPackages, "packages", nil, "Packages to install")
	installDepsCmd.Flags().BoolVar(&depsDev, "dev", false, "Include development dependencies")
	installDepsCmd.Flags().BoolVar(&depsNoParallel, "no-parallel", false, "Disable parallel installation")

	installEditableCmd.Flags().BoolVar(&editableNoParallel, "no-parallel", false, "Disable parallel installation")
}

func runCreateVenv(cmd *cobra.Command, args []string) error {
	path := args[0]

	timeout := cfg.CommandTimeout
	if createTimeout > 0 {
		timeout = time.Duration(createTimeout) * time.Second
	}
	retries := cfg.MaxRetries
	if createRetries > 0 {
		retries = createRetries
	}

	if !tool.Installed() {
		return errors.New("uv is not installed; run 'uvman install' first")
	}

	fmt.Printf("Creating virtual environment at %s...\n", venv.ExpandPath(path))
	if !envs.Create(ctx, path, createPython, timeout, retries) {
		return errors.New("failed to create virtual environment (see log for details)")
	}

	fmt.Printf("Virtual environment created and verified successfully at %s\n", venv.ExpandPath(path))
	fmt.Printf("Activate with: %s\n", venv.ActivateHint(path))
	return nil
}

func runInstallDeps(cmd *cobra.Command, args []string) error {
	envPath := args[0]

	if depsRequirements == "" && len(depsPackages) == 0 {
		return errors.New("no dependencies specified: pass --requirements or --packages")
	}

	target := venv.InstallTarget{
		Requirements: depsRequirements,
		Packages:     depsPackages,
		Dev:          depsDev,
		Parallel:     !depsNoParallel,
	}

	if !envs.InstallDeps(ctx, envPath, target) {
		return fmt.Errorf("failed to install dependencies into %s", envPath)
	}
	fmt.Println("Dependencies installed successfully.")
	return nil
}

func runInstallEditable(cmd *cobra.Command, args []string) error {
	envPath, projectPath := args[0], args[1]

	if !envs.InstallEditable(ctx, envPath, projectPath, !editableNoParallel) {
		return fmt.Errorf("failed to install %s in editable mode", projectPath)
	}
	fmt.Println("Project installed successfully in editable mode.")
	return nil
}

// Package venv creates and verifies isolated Python environments and
// populates verified environments with dependencies. An environment is a
// directory holding an interpreter and a package installer; it is usable
// only while it re-verifies as valid at the moment of use.
package venv

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"uvman/internal/runner"
)

// Manager owns environment lifecycle and dependency installation.
type Manager struct {
	log  *zap.Logger
	exec runner.CommandRunner

	// installTimeout bounds dependency installs; larger than the default
	// command timeout because resolution and download dominate.
	installTimeout time.Duration

	// probeTimeout bounds the interpreter version probe during Verify.
	probeTimeout time.Duration
}

// NewManager builds a Manager.
func NewManager(log *zap.Logger, exec runner.CommandRunner, installTimeout, probeTimeout time.Duration) *Manager {
	return &Manager{
		log:            log,
		exec:           exec,
		installTimeout: installTimeout,
		probeTimeout:   probeTimeout,
	}
}

// Create builds a virtual environment at path via `uv venv`, optionally
// pinned to a runtime version, with caller-supplied timeout and retry
// overrides. A failed creation with the directory present falls back to
// verifying the partial result: the external invocation may still have left
// a usable environment. A successful creation must verify before Create
// reports success.
func (m *Manager) Create(ctx context.Context, path, pythonVersion string, timeout time.Duration, retries int) bool {
	path = ExpandPath(path)

	args := []string{"venv", path}
	if pythonVersion != "" {
		args = append(args, "--python", pythonVersion)
	}

	m.log.Info("creating virtual environment",
		zap.String("path", path),
		zap.String("python", orDefault(pythonVersion)))

	if _, err := os.Stat(path); err == nil {
		m.log.Warn("directory already exists", zap.String("path", path))
	}

	cmd := runner.Streamed("uv", args...)
	cmd.Timeout = timeout
	cmd.Retry = runner.RetryPolicy{Attempts: retries}

	res := m.exec.Execute(ctx, cmd)
	if !res.OK {
		m.log.Error("failed to create virtual environment", zap.String("path", path))

		if _, err := os.Stat(path); err == nil {
			m.log.Info("attempting to verify partial virtual environment", zap.String("path", path))
			if m.Verify(ctx, path) {
				m.log.Info("existing virtual environment is valid", zap.String("path", path))
				return true
			}
			m.log.Warn("existing virtual environment is invalid or incomplete", zap.String("path", path))
		}
		return false
	}

	if !m.Verify(ctx, path) {
		m.log.Error("virtual environment creation failed verification", zap.String("path", path))
		return false
	}

	m.log.Info("virtual environment created and verified", zap.String("path", path))
	return true
}

// Verify checks that path holds a usable environment: both expected binaries
// exist as regular files and the interpreter runs and reports a version.
// Verification is never cached; callers re-verify at the moment of use.
// Pure aside from logging.
func (m *Manager) Verify(ctx context.Context, path string) bool {
	path = ExpandPath(path)
	pythonBin := PythonBin(path)
	pipBin := filepath.Join(path, "bin", "pip")

	if !isRegularFile(pythonBin) {
		m.log.Warn("python binary not found in virtual environment", zap.String("path", pythonBin))
		return false
	}
	if !isRegularFile(pipBin) {
		m.log.Warn("pip binary not found in virtual environment", zap.String("path", pipBin))
		return false
	}

	probe := runner.New(pythonBin, "--version")
	probe.Timeout = m.probeTimeout
	probe.Retry = runner.RetryPolicy{Attempts: 1}

	res := m.exec.Execute(ctx, probe)
	if !res.OK {
		m.log.Warn("python binary exists but failed to execute", zap.String("path", pythonBin))
		return false
	}

	m.log.Info("virtual environment verified",
		zap.String("path", path), zap.String("python_version", res.Stdout))
	return true
}

// InstallTarget specifies what to install. Requirements and Packages are
// mutually exclusive in intent; when both are present the requirements file
// wins and the package list is ignored.
type InstallTarget struct {
	Requirements string
	Packages     []string

	// Dev includes development dependencies (requirements installs only).
	Dev bool

	// Parallel enables parallel installation.
	Parallel bool
}

func (t InstallTarget) empty() bool {
	return t.Requirements == "" && len(t.Packages) == 0
}

// InstallDeps populates the environment at envPath from target. The
// environment must re-verify as valid; otherwise the operation fails fast
// with no external process spawned. An empty target is likewise rejected
// before any spawn.
func (m *Manager) InstallDeps(ctx context.Context, envPath string, target InstallTarget) bool {
	envPath = ExpandPath(envPath)

	if target.empty() {
		m.log.Warn("no dependencies specified for installation")
		return false
	}
	if !m.Verify(ctx, envPath) {
		m.log.Error("cannot install dependencies: not a valid virtual environment",
			zap.String("path", envPath))
		return false
	}

	args := []string{"-m", "uv", "pip", "install"}
	switch {
	case target.Requirements != "":
		m.log.Info("installing dependencies from requirements file",
			zap.String("file", target.Requirements))
		args = append(args, "-r", target.Requirements)
		if target.Dev {
			args = append(args, "--dev")
		}
	default:
		m.log.Info("installing packages",
			zap.String("packages", strings.Join(target.Packages, " ")))
		args = append(args, target.Packages...)
	}
	if target.Parallel {
		args = append(args, "--parallel")
	}

	return m.runInstall(ctx, envPath, args, "failed to install dependencies")
}

// InstallEditable installs the project at projectPath into the environment
// in editable mode, so source changes apply without reinstallation. The
// environment must re-verify first.
func (m *Manager) InstallEditable(ctx context.Context, envPath, projectPath string, parallel bool) bool {
	envPath = ExpandPath(envPath)
	projectPath = ExpandPath(projectPath)

	if !m.Verify(ctx, envPath) {
		m.log.Error("cannot install project: not a valid virtual environment",
			zap.String("path", envPath))
		return false
	}

	m.log.Info("installing project in editable mode", zap.String("project", projectPath))

	args := []string{"-m", "uv", "pip", "install", "-e", projectPath}
	if parallel {
		args = append(args, "--parallel")
	}

	return m.runInstall(ctx, envPath, args, "failed to install project in editable mode")
}

func (m *Manager) runInstall(ctx context.Context, envPath string, args []string, failMsg string) bool {
	cmd := runner.Streamed(PythonBin(envPath), args...)
	cmd.Timeout = m.installTimeout

	res := m.exec.Execute(ctx, cmd)
	if !res.OK {
		m.log.Error(failMsg, zap.String("path", envPath))
		return false
	}
	m.log.Info("install completed", zap.String("path", envPath))
	return true
}

// PythonBin returns the interpreter path inside an environment.
func PythonBin(envPath string) string {
	return filepath.Join(envPath, "bin", "python")
}

// ActivateHint returns the shell line that activates the environment.
func ActivateHint(envPath string) string {
	return "source " + filepath.Join(ExpandPath(envPath), "bin", "activate")
}

// ExpandPath resolves a leading ~ and absolutizes the result. The ~user form
// is not resolved; such paths are kept literal.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func orDefault(version string) string {
	if version == "" {
		return "default"
	}
	return version
}

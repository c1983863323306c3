// Package uvtool manages the lifecycle of the uv binary itself: presence,
// version, installation via the vendor installer, and updates. uv is opaque
// beyond its command syntax; it is reached through the process search path.
package uvtool

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"uvman/internal/runner"
)

// installerScript is the vendor-provided install/update procedure. It is the
// one deliberately shell-wrapped invocation in uvman: the vendor ships a
// pipeline, and no user input is interpolated into it.
const installerScript = "curl -LsSf https://astral.sh/uv/install.sh | sh"

// hintDirs are conventional install locations scanned when the installer
// succeeds but uv still cannot be resolved on PATH.
var hintDirs = []string{
	filepath.Join(".cargo", "bin"),
	filepath.Join(".local", "bin"),
}

// Manager drives uv lifecycle operations through the executor.
type Manager struct {
	log  *zap.Logger
	exec runner.CommandRunner

	installTimeout time.Duration

	// lookPath and home are seams for tests.
	lookPath func(string) (string, error)
	home     func() (string, error)
}

// NewManager builds a Manager. installTimeout bounds each attempt of the
// vendor installer, which downloads a release artifact.
func NewManager(log *zap.Logger, exec runner.CommandRunner, installTimeout time.Duration) *Manager {
	return &Manager{
		log:            log,
		exec:           exec,
		installTimeout: installTimeout,
		lookPath:       execLookPath,
		home:           os.UserHomeDir,
	}
}

func execLookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// Installed reports whether uv resolves on the search path.
func (m *Manager) Installed() bool {
	_, err := m.lookPath("uv")
	return err == nil
}

// Version returns the installed uv version line, or false when uv is absent
// or the probe fails.
func (m *Manager) Version(ctx context.Context) (string, bool) {
	if !m.Installed() {
		return "", false
	}
	res := m.exec.Execute(ctx, runner.New("uv", "--version"))
	if !res.OK {
		return "", false
	}
	return res.Stdout, true
}

// InstallReport describes the outcome of Install or Update.
type InstallReport struct {
	OK bool

	// AlreadyInstalled is set when Install found uv present and did
	// nothing.
	AlreadyInstalled bool

	// Version is the uv version after the operation, when resolvable.
	Version string

	// NotOnPath is set when the installer succeeded but uv still does not
	// resolve on the search path.
	NotOnPath bool

	// PathHint points at a discovered uv binary outside the search path.
	// Set only on the installed-but-not-on-PATH partial failure, and only
	// when the conventional directories held a match.
	PathHint string
}

// Install runs the vendor installer unless uv is already present. It is
// idempotent: an installed uv short-circuits with the current version. When
// the installer succeeds but uv still does not resolve, Install scans the
// conventional install directories and surfaces any match as a hint rather
// than repairing PATH itself.
func (m *Manager) Install(ctx context.Context) InstallReport {
	if m.Installed() {
		v, _ := m.Version(ctx)
		return InstallReport{OK: true, AlreadyInstalled: true, Version: v}
	}

	m.log.Info("installing uv")
	if !m.runInstaller(ctx) {
		m.log.Error("failed to install uv")
		return InstallReport{}
	}

	if !m.Installed() {
		m.log.Warn("uv installed but not in PATH")
		return InstallReport{NotOnPath: true, PathHint: m.findBinaryHint()}
	}

	v, _ := m.Version(ctx)
	m.log.Info("uv installed successfully", zap.String("version", v))
	return InstallReport{OK: true, Version: v}
}

// Update reruns the vendor installer (the installer is also the updater).
// An unchanged version before and after is reported as success with
// AlreadyInstalled set. When uv is absent, Update falls through to Install.
func (m *Manager) Update(ctx context.Context) InstallReport {
	if !m.Installed() {
		m.log.Info("uv not installed, installing instead of updating")
		return m.Install(ctx)
	}

	before, _ := m.Version(ctx)
	m.log.Info("updating uv", zap.String("version", before))

	if !m.runInstaller(ctx) {
		m.log.Error("failed to update uv")
		return InstallReport{}
	}

	after, _ := m.Version(ctx)
	if after == before {
		m.log.Info("uv is already at the latest version")
		return InstallReport{OK: true, AlreadyInstalled: true, Version: after}
	}

	m.log.Info("uv updated successfully",
		zap.String("from", before), zap.String("to", after))
	return InstallReport{OK: true, Version: after}
}

// ListPythons streams the runtime versions uv can provide. Fails when uv is
// absent without spawning anything.
func (m *Manager) ListPythons(ctx context.Context) bool {
	if !m.Installed() {
		m.log.Warn("cannot list python versions: uv is not installed")
		return false
	}
	res := m.exec.Execute(ctx, runner.Streamed("uv", "python", "list"))
	if res.OK {
		m.log.Info("listed available python versions")
	}
	return res.OK
}

// InstallPython installs the given runtime version, or the latest when
// version is empty, then verifies presence via a captured listing. A failed
// verification downgrades to a warning: the install command itself already
// reported success.
func (m *Manager) InstallPython(ctx context.Context, version string) bool {
	if !m.Installed() {
		m.log.Warn("cannot install python: uv is not installed")
		return false
	}

	args := []string{"python", "install"}
	if version != "" {
		args = append(args, version)
	}
	m.log.Info("installing python", zap.String("version", orLatest(version)))

	res := m.exec.Execute(ctx, runner.Streamed("uv", args...))
	if !res.OK {
		m.log.Error("failed to install python", zap.String("version", orLatest(version)))
		return false
	}

	listing := m.exec.Execute(ctx, runner.New("uv", "python", "list"))
	switch {
	case !listing.OK:
		m.log.Warn("python installation could not be verified")
	case version != "" && !strings.Contains(listing.Stdout, version):
		m.log.Warn("python installation could not be verified",
			zap.String("version", version))
	default:
		m.log.Info("python installed and verified", zap.String("version", orLatest(version)))
	}
	return true
}

func (m *Manager) runInstaller(ctx context.Context) bool {
	cmd := runner.Streamed("sh", "-c", installerScript)
	cmd.Timeout = m.installTimeout
	return m.exec.Execute(ctx, cmd).OK
}

// findBinaryHint scans the conventional install directories for a uv binary
// outside the search path.
func (m *Manager) findBinaryHint() string {
	home, err := m.home()
	if err != nil {
		return ""
	}
	for _, dir := range hintDirs {
		candidate := filepath.Join(home, dir, "uv")
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			m.log.Info("found uv outside PATH", zap.String("path", candidate))
			return candidate
		}
	}
	return ""
}

func orLatest(version string) string {
	if version == "" {
		return "latest"
	}
	return version
}

// Package build provides the subprocess build backend adapter.
package build

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.trai.ch/pakt/internal/core/domain"
	"go.trai.ch/pakt/internal/core/ports"
	"go.trai.ch/zerr"
)

// DefaultTool is the build tool invoked when none is configured.
const DefaultTool = "python3"

// logTailLimit bounds how much captured output is attached to build errors.
const logTailLimit = 4096

// defaultArgs invoke the standard PEP 517 frontend.
var defaultArgs = []string{"-m", "build", "--wheel"}

// Backend implements ports.BuildBackend by invoking an external build tool.
// The subprocess runs in an isolated scratch directory with a minimal
// environment; the only trusted channels back are the exit code, the produced
// file and the captured log output.
type Backend struct {
	tool   string
	args   []string
	logger ports.Logger
}

// NewBackend creates a Backend invoking tool with args. Empty values fall back
// to DefaultTool and the standard frontend arguments.
func NewBackend(tool string, args []string, logger ports.Logger) *Backend {
	if tool == "" {
		tool = DefaultTool
	}
	if len(args) == 0 {
		args = defaultArgs
	}
	return &Backend{
		tool:   tool,
		args:   args,
		logger: logger,
	}
}

// Available reports whether the configured tool can be located on PATH.
func (b *Backend) Available() bool {
	_, err := exec.LookPath(b.tool)
	return err == nil
}

// Build runs the backend for job and returns the single artifact it produced
// in job.OutputDir. The output directory is appended to the configured
// arguments followed by the source directory, so a job invocation looks like:
//
//	python3 -m build --wheel --outdir <output> <source>
func (b *Backend) Build(ctx context.Context, job ports.BuildJob) (ports.BuildResult, error) {
	args := make([]string, 0, len(b.args)+3)
	args = append(args, b.args...)
	args = append(args, "--outdir", job.OutputDir, job.SourceDir)

	cmd := exec.CommandContext(ctx, b.tool, args...) //nolint:gosec // configured build tool
	cmd.Dir = job.SourceDir
	cmd.Env = buildEnvironment(job.Target)

	tail := &tailWriter{limit: logTailLimit}
	cmd.Stdout = io.MultiWriter(tail, &logWriter{logger: b.logger, pkg: job.Artifact.Identity})
	cmd.Stderr = io.MultiWriter(tail, &logWriter{logger: b.logger, pkg: job.Artifact.Identity})

	b.logger.Debug("building source artifact",
		"package", job.Artifact.Identity.String(),
		"version", job.Artifact.Version,
		"target", job.Target.Name,
	)

	if err := cmd.Run(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		buildErr := zerr.Wrap(domain.ErrBuild, err.Error())
		buildErr = zerr.With(buildErr, "package", job.Artifact.Identity.String())
		buildErr = zerr.With(buildErr, "version", job.Artifact.Version)
		buildErr = zerr.With(buildErr, "exit_code", exitCode)
		buildErr = zerr.With(buildErr, "log_tail", tail.String())
		return ports.BuildResult{}, buildErr
	}

	produced, err := singleOutput(job.OutputDir)
	if err != nil {
		return ports.BuildResult{}, err
	}

	sum, err := hashFile(produced)
	if err != nil {
		return ports.BuildResult{}, err
	}

	return ports.BuildResult{
		ArtifactPath: produced,
		SHA256:       sum,
	}, nil
}

// buildEnvironment constructs the minimal subprocess environment. Only PATH,
// HOME and TMPDIR are inherited; the target environment is described through
// PAKT_* variables so backends can cross-build.
func buildEnvironment(target *domain.TargetEnvironment) []string {
	env := make([]string, 0, 8)
	for _, key := range []string{"PATH", "HOME", "TMPDIR"} {
		if v, ok := os.LookupEnv(key); ok {
			env = append(env, key+"="+v)
		}
	}
	if target != nil {
		env = append(env,
			"PAKT_TARGET="+target.Name,
			"PAKT_TARGET_PLATFORM="+target.Platform,
			"PAKT_TARGET_VERSION="+target.Version,
			"PAKT_TARGET_IMPLEMENTATION="+target.Implementation,
		)
	}
	return env
}

// singleOutput returns the one regular file the backend left in dir.
func singleOutput(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", zerr.Wrap(err, "reading build output directory")
	}

	var files []string
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}

	switch len(files) {
	case 0:
		return "", zerr.With(zerr.Wrap(domain.ErrBuild, "backend produced no artifact"), "dir", dir)
	case 1:
		return files[0], nil
	default:
		return "", zerr.With(zerr.Wrap(domain.ErrBuild, "backend produced multiple artifacts"), "count", len(files))
	}
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path) //nolint:gosec // path produced by the backend
	if err != nil {
		return "", zerr.Wrap(err, "opening built artifact")
	}
	defer f.Close() //nolint:errcheck // read-only file

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", zerr.Wrap(err, "hashing built artifact")
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// logWriter streams subprocess output lines to the debug log.
type logWriter struct {
	logger ports.Logger
	pkg    domain.Identity
}

func (w *logWriter) Write(p []byte) (int, error) {
	lines := strings.Split(strings.TrimSuffix(string(p), "\n"), "\n")
	for _, line := range lines {
		if line == "" {
			continue
		}
		w.logger.Debug(line, "package", w.pkg.String())
	}
	return len(p), nil
}

// tailWriter keeps the last limit bytes written to it.
type tailWriter struct {
	limit int
	buf   bytes.Buffer
}

func (w *tailWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	if w.buf.Len() > w.limit {
		trimmed := w.buf.Bytes()[w.buf.Len()-w.limit:]
		rest := make([]byte, len(trimmed))
		copy(rest, trimmed)
		w.buf.Reset()
		w.buf.Write(rest)
	}
	return len(p), nil
}

func (w *tailWriter) String() string {
	return w.buf.String()
}

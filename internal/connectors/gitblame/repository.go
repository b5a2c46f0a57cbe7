package gitblame

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Runner executes git subcommands. Production uses the external git
// binary; tests substitute a fake.
type Runner interface {
	// Run executes git with args in dir (empty dir means the process
	// working directory) and returns its stdout. A non-zero exit status
	// becomes an error carrying the tool's stderr verbatim.
	Run(ctx context.Context, dir string, args ...string) ([]byte, error)
}

// execRunner invokes the real git executable.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "LANG=C", "PAGER=")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return stdout.Bytes(), fmt.Errorf("git command - %s", msg)
	}
	return stdout.Bytes(), nil
}

// Repository is a handle over a local, non-bare git working copy.
type Repository struct {
	uri  string
	path string
	run  Runner
}

// OpenRepository validates an existing working tree at path and returns a
// handle over it. It fails immediately with *RepositoryError when path
// does not hold a working git tree; the check is never deferred.
func OpenRepository(uri, path string, run Runner) (*Repository, error) {
	if run == nil {
		run = execRunner{}
	}

	info, err := os.Stat(filepath.Join(path, ".git"))
	if err != nil || !info.IsDir() {
		return nil, &RepositoryError{
			Msg: fmt.Sprintf("git repository '%s' does not exist", path),
		}
	}

	return &Repository{uri: uri, path: path, run: run}, nil
}

// Clone materialises a new working tree for uri at dest. It fails with
// *RepositoryError wrapping git's fatal message when dest already exists
// or uri is unreachable.
func Clone(ctx context.Context, uri, dest string, run Runner) (*Repository, error) {
	if run == nil {
		run = execRunner{}
	}

	if _, err := run.Run(ctx, "", "clone", uri, dest); err != nil {
		return nil, &RepositoryError{Msg: err.Error(), Err: err}
	}
	return &Repository{uri: uri, path: dest, run: run}, nil
}

// URI returns the source the working copy was cloned from.
func (r *Repository) URI() string { return r.uri }

// Path returns the working copy location.
func (r *Repository) Path() string { return r.path }

// Pull moves the working tree to match its remote counterpart, discarding
// any local-only commits made since the last sync. Each harvest run then
// starts from a deterministic, reproducible tree state.
func (r *Repository) Pull(ctx context.Context) error {
	if _, err := r.run.Run(ctx, r.path, "fetch", "origin"); err != nil {
		return &RepositoryError{Msg: err.Error(), Err: err}
	}
	if _, err := r.run.Run(ctx, r.path, "reset", "--hard", "FETCH_HEAD"); err != nil {
		return &RepositoryError{Msg: err.Error(), Err: err}
	}
	return nil
}

// Checkout moves the working tree to an arbitrary revision: a symbolic
// ref like "HEAD" or a commit id. History visible to blame is truncated
// to that point.
func (r *Repository) Checkout(ctx context.Context, rev string) error {
	if _, err := r.run.Run(ctx, r.path, "checkout", rev); err != nil {
		return &RepositoryError{Msg: err.Error(), Err: err}
	}
	return nil
}

// ListFiles enumerates the paths tracked at the checked-out revision.
func (r *Repository) ListFiles(ctx context.Context) ([]string, error) {
	out, err := r.run.Run(ctx, r.path, "ls-files")
	if err != nil {
		return nil, &RepositoryError{Msg: err.Error(), Err: err}
	}

	var files []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			files = append(files, line)
		}
	}
	return files, nil
}

// Blame runs the per-line attribution command against path at the
// currently checked-out revision, in incremental porcelain format with
// full hashes and rename tracking. A path that does not exist at the
// revision yields empty bytes, not an error.
func (r *Repository) Blame(ctx context.Context, path string) ([]byte, error) {
	out, err := r.run.Run(ctx, r.path, "blame", "--root", "--incremental", "-M", "-C", "--", path)
	if err != nil {
		if strings.Contains(err.Error(), "no such path") {
			return nil, nil
		}
		return nil, &RepositoryError{Msg: err.Error(), Err: err}
	}
	return out, nil
}

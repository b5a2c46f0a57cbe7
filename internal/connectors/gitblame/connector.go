// Package gitblame implements the git blame connector: a local-process
// retrieval strategy behind the Connector contract. It keeps a working
// copy of a git tree in sync, runs per-line attribution over every
// tracked path at a chosen revision, and turns the output into
// attribution records.
package gitblame

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jgbarah-chaoss/grimoirelab-perceval/internal/connectors"
	"github.com/jgbarah-chaoss/grimoirelab-perceval/internal/core/domain"
	"github.com/jgbarah-chaoss/grimoirelab-perceval/internal/core/ports/driven"
	"github.com/jgbarah-chaoss/grimoirelab-perceval/internal/logger"
)

const (
	// BackendName identifies this connector implementation.
	BackendName = "GitBlame"

	// BackendVersion is the connector implementation version.
	BackendVersion = "0.1.0"

	// DefaultRev is the revision blamed when none is configured.
	DefaultRev = "HEAD"
)

// Ensure Connector implements the contract.
var _ driven.Connector = (*Connector)(nil)

// Config configures the git blame connector.
type Config struct {
	// URI is the repository the working copy is cloned from.
	URI string

	// GitPath is the local working copy location. Cloned on first use if
	// missing, pulled to match the remote otherwise.
	GitPath string

	// Origin identifies the source instance in stamped records.
	// Defaults to URI when empty.
	Origin string

	// Rev is the revision to blame. Defaults to "HEAD".
	Rev string
}

// Option configures a Connector.
type Option func(*Connector)

// WithRunner replaces the git runner. Useful for testing.
func WithRunner(run Runner) Option {
	return func(c *Connector) { c.run = run }
}

// Connector harvests attribution records from a git repository.
type Connector struct {
	uri     string
	gitpath string
	origin  string
	rev     string
	cache   driven.RecordCache
	run     Runner
}

// New creates a git blame connector. A nil cache disables caching.
func New(cfg Config, rc driven.RecordCache, opts ...Option) *Connector {
	origin := cfg.Origin
	if origin == "" {
		origin = cfg.URI
	}
	rev := cfg.Rev
	if rev == "" {
		rev = DefaultRev
	}

	c := &Connector{
		uri:     cfg.URI,
		gitpath: cfg.GitPath,
		origin:  origin,
		rev:     rev,
		cache:   rc,
		run:     execRunner{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BackendName returns the connector implementation identifier.
func (c *Connector) BackendName() string { return BackendName }

// BackendVersion returns the connector implementation version.
func (c *Connector) BackendVersion() string { return BackendVersion }

// Origin returns the source instance identifier.
func (c *Connector) Origin() string { return c.origin }

// URI returns the configured repository URI.
func (c *Connector) URI() string { return c.uri }

// GitPath returns the configured working copy location.
func (c *Connector) GitPath() string { return c.gitpath }

// Fetch blames every tracked path at the configured revision and yields
// the attribution records updated at or after since. A zero since means
// all records, back to the beginning of time.
//
// The working copy is synchronised lazily on the first advance: clone if
// GitPath is missing, otherwise open and pull, then checkout.
func (c *Connector) Fetch(ctx context.Context, since time.Time) *domain.RecordIter {
	logger.Info("Blaming repository '%s' at revision '%s'", c.uri, c.rev)

	// committer-time per commit, so abbreviated blame groups inherit the
	// watermark of the commit whose metadata they omit. Scoped to the run.
	times := make(map[string]int64)

	var (
		repo    *Repository
		files   []string
		idx     int
		pending []domain.Record
	)

	next := func() (domain.Record, bool, error) {
		if repo == nil {
			r, err := c.syncWorkingCopy(ctx)
			if err != nil {
				return nil, false, err
			}
			fs, err := r.ListFiles(ctx)
			if err != nil {
				return nil, false, err
			}
			repo, files = r, fs
		}

		for {
			for len(pending) > 0 {
				rec := pending[0]
				pending = pending[1:]

				updated, err := commitTime(rec, times)
				if err != nil {
					return nil, false, err
				}
				if !since.IsZero() && updated < since.Unix() {
					continue
				}
				return rec, true, nil
			}

			if idx >= len(files) {
				return nil, false, nil
			}
			path := files[idx]
			idx++

			logger.Debug("Blaming file '%s'", path)
			raw, err := repo.Blame(ctx, path)
			if err != nil {
				return nil, false, err
			}
			if len(raw) == 0 {
				continue
			}
			recs, err := NewBlameOutput(raw).Analyze()
			if err != nil {
				return nil, false, err
			}
			for _, rec := range recs {
				rec["file_blamed"] = path
			}
			pending = recs
		}
	}

	return connectors.Harvest(c.cache, c.stamper(times), next)
}

// FetchFromCache replays the attribution records currently durable in the
// cache.
func (c *Connector) FetchFromCache() *domain.RecordIter {
	return connectors.Replay(c.cache)
}

// syncWorkingCopy brings the local tree to a deterministic state: clone
// when missing, open and pull when present, then checkout the revision.
func (c *Connector) syncWorkingCopy(ctx context.Context) (*Repository, error) {
	var (
		repo *Repository
		err  error
	)

	if _, statErr := os.Stat(filepath.Join(c.gitpath, ".git")); statErr == nil {
		repo, err = OpenRepository(c.uri, c.gitpath, c.run)
		if err != nil {
			return nil, err
		}
		if err := repo.Pull(ctx); err != nil {
			return nil, err
		}
	} else {
		repo, err = Clone(ctx, c.uri, c.gitpath, c.run)
		if err != nil {
			return nil, err
		}
	}

	if err := repo.Checkout(ctx, c.rev); err != nil {
		return nil, err
	}
	return repo, nil
}

func (c *Connector) stamper(times map[string]int64) domain.Stamper {
	return domain.Stamper{
		Origin:         c.origin,
		BackendName:    BackendName,
		BackendVersion: BackendVersion,
		UpdateTime: func(rec domain.Record) (int64, error) {
			return commitTime(rec, times)
		},
		Discriminator: discriminator,
	}
}

// commitTime resolves a record's committer-time watermark. Full groups
// carry the field themselves and populate the memo; abbreviated groups
// resolve through the memo by commit hash.
func commitTime(rec domain.Record, times map[string]int64) (int64, error) {
	hash, _ := rec["hash"].(string)

	if v, ok := rec["committer-time"]; ok {
		s, ok := v.(string)
		if !ok {
			return 0, &domain.MalformedRecordError{Field: "committer-time"}
		}
		t, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, &domain.MalformedRecordError{Field: "committer-time", Err: err}
		}
		if hash != "" {
			times[hash] = t
		}
		return t, nil
	}

	if t, ok := times[hash]; ok {
		return t, nil
	}
	return 0, &domain.MalformedRecordError{Field: "committer-time"}
}

// discriminator keys an attribution record on its commit and line range
// within the blamed file.
func discriminator(rec domain.Record) string {
	get := func(k string) string {
		s, _ := rec[k].(string)
		return s
	}
	return get("hash") + ":" + get("file_blamed") + ":" + get("prev_line") + ":" + get("this_line")
}

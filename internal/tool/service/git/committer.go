package git

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/sirupsen/logrus"

	"github.com/Cyclone1070/devrun/internal/config"
)

// Committer stages and commits changes with go-git.
type Committer struct {
	config *config.Config
	fs     fileSystem
	log    logrus.FieldLogger
}

// NewCommitter creates a Committer with injected config.
func NewCommitter(cfg *config.Config, log logrus.FieldLogger) *Committer {
	if cfg == nil {
		panic("cfg is required")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Committer{config: cfg, fs: osFileSystem{}, log: log}
}

// Commit stages files (every change when files is empty) in the repository
// containing dir and commits them with message. It returns the new commit
// hash, or ErrNothingToCommit when nothing ended up staged.
func (c *Committer) Commit(ctx context.Context, dir, message string, files []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	repo, err := open(dir)
	if err != nil {
		return "", err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", &RepositoryError{Dir: dir, Stage: "open", Cause: err}
	}
	root := wt.Filesystem.Root()

	if len(files) == 0 {
		if err := wt.AddWithOptions(&gogit.AddOptions{All: true}); err != nil {
			return "", &RepositoryError{Dir: dir, Stage: "stage", Cause: err}
		}
	} else if err := c.stageFiles(wt, root, dir, files); err != nil {
		return "", err
	}

	status, err := wt.Status()
	if err != nil {
		return "", &RepositoryError{Dir: dir, Stage: "status", Cause: err}
	}
	if !hasStaged(status) {
		return "", ErrNothingToCommit
	}

	hash, err := wt.Commit(message, &gogit.CommitOptions{Author: c.signature(repo)})
	if err != nil {
		return "", &RepositoryError{Dir: dir, Stage: "commit", Cause: err}
	}

	c.log.WithFields(logrus.Fields{"dir": root, "hash": hash.String()}).Info("auto-commit created")
	return hash.String(), nil
}

// CurrentBranch returns the short name of the checked-out branch. A fresh
// repository without commits still reports the branch HEAD points to.
func (c *Committer) CurrentBranch(dir string) (string, error) {
	repo, err := open(dir)
	if err != nil {
		return "", err
	}
	head, err := repo.Reference(plumbing.HEAD, false)
	if err != nil {
		return "", &RepositoryError{Dir: dir, Stage: "head", Cause: err}
	}
	if head.Type() == plumbing.SymbolicReference {
		return head.Target().Short(), nil
	}
	// Detached HEAD
	return head.Hash().String()[:7], nil
}

func (c *Committer) stageFiles(wt *gogit.Worktree, root, dir string, files []string) error {
	ignore, err := NewIgnoreMatcher(root, c.fs)
	if err != nil {
		return err
	}
	for _, f := range files {
		abs := f
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(dir, f)
		}
		rel, err := filepath.Rel(root, abs)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return &PathOutsideRepoError{Path: f, Root: root}
		}
		if ignore.ShouldIgnore(rel, false) {
			c.log.WithField("path", rel).Debug("skipping ignored file")
			continue
		}
		if _, err := wt.Add(filepath.ToSlash(rel)); err != nil {
			return &RepositoryError{Dir: dir, Stage: "stage", Cause: err}
		}
	}
	return nil
}

// signature prefers the user's global git identity over the configured
// fallback.
func (c *Committer) signature(repo *gogit.Repository) *object.Signature {
	name, email := c.config.Git.AuthorName, c.config.Git.AuthorEmail
	if cfg, err := repo.ConfigScoped(gitconfig.GlobalScope); err == nil {
		if cfg.User.Name != "" {
			name = cfg.User.Name
		}
		if cfg.User.Email != "" {
			email = cfg.User.Email
		}
	}
	return &object.Signature{Name: name, Email: email, When: time.Now()}
}

func open(dir string) (*gogit.Repository, error) {
	repo, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return nil, &RepositoryError{Dir: dir, Stage: "open", Cause: ErrNotRepository}
		}
		return nil, &RepositoryError{Dir: dir, Stage: "open", Cause: err}
	}
	return repo, nil
}

func hasStaged(status gogit.Status) bool {
	for _, s := range status {
		if s.Staging != gogit.Unmodified && s.Staging != gogit.Untracked {
			return true
		}
	}
	return false
}

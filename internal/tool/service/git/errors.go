package git

import (
	"errors"
	"fmt"
)

// ErrNothingToCommit is returned when no staged change exists after staging.
var ErrNothingToCommit = errors.New("nothing to commit")

// ErrNotRepository is matched when dir is not inside a git work tree.
var ErrNotRepository = errors.New("not a git repository")

// GitignoreReadError is returned when .gitignore cannot be read.
type GitignoreReadError struct {
	Path  string
	Cause error
}

func (e *GitignoreReadError) Error() string {
	return fmt.Sprintf("failed to read .gitignore at %s: %v", e.Path, e.Cause)
}

func (e *GitignoreReadError) Unwrap() error { return e.Cause }

func (e *GitignoreReadError) IOError() bool { return true }

// RepositoryError wraps a go-git failure with the directory and the step
// that failed.
type RepositoryError struct {
	Dir   string
	Stage string // "open", "stage", "status", "commit", "head"
	Cause error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("git %s failed in %s: %v", e.Stage, e.Dir, e.Cause)
}

func (e *RepositoryError) Unwrap() error { return e.Cause }

// PathOutsideRepoError is returned when a file to stage lies outside the
// work tree.
type PathOutsideRepoError struct {
	Path string
	Root string
}

func (e *PathOutsideRepoError) Error() string {
	return fmt.Sprintf("path %s is outside the repository at %s", e.Path, e.Root)
}

func (e *PathOutsideRepoError) InvalidInput() bool { return true }

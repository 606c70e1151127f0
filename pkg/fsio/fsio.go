// Package fsio provides the guarded filesystem operations the split and
// stitch layers call into: opens that can tolerate a missing file, writes
// that never silently overwrite, and best-effort cleanup of leftovers.
// Whether a risky operation proceeds is decided by an explicit confirmation
// policy, not by the package.
package fsio

import (
	"errors"
	"fmt"
	"os"
)

// Policy decides how confirmation prompts are answered.
type Policy int

const (
	// PolicyAsk defers every prompt to the ask callback.
	PolicyAsk Policy = iota
	// PolicyAssumeYes answers every prompt yes without asking.
	PolicyAssumeYes
	// PolicyAssumeNo answers every prompt no without asking.
	PolicyAssumeNo
)

// Answer is one response to a prompt.
type Answer int

const (
	// No declines the prompt.
	No Answer = iota
	// Yes accepts the prompt.
	Yes
	// Always accepts the prompt and every later one in the same run.
	Always
)

// AskFunc poses one question to the user and returns their answer.
type AskFunc func(prompt string) Answer

// Confirmer answers confirmation prompts according to a policy. An Always
// answer upgrades the confirmer to PolicyAssumeYes for the rest of the run;
// the state lives in the value, not in a package global.
type Confirmer struct {
	policy Policy
	ask    AskFunc
}

// NewConfirmer creates a confirmer. The ask callback is only consulted under
// PolicyAsk; a nil callback declines everything.
func NewConfirmer(policy Policy, ask AskFunc) *Confirmer {
	return &Confirmer{policy: policy, ask: ask}
}

// Confirm reports whether the described action may proceed.
func (c *Confirmer) Confirm(prompt string) bool {
	switch c.policy {
	case PolicyAssumeYes:
		return true
	case PolicyAssumeNo:
		return false
	}
	if c.ask == nil {
		return false
	}
	switch c.ask(prompt) {
	case Always:
		c.policy = PolicyAssumeYes
		return true
	case Yes:
		return true
	}
	return false
}

// ErrDeclined reports that the user declined the operation.
var ErrDeclined = errors.New("declined")

// Guard performs filesystem operations that would skip or clobber data only
// with the confirmer's consent.
type Guard struct {
	confirm *Confirmer
}

// NewGuard creates a guard around the given confirmer.
func NewGuard(confirm *Confirmer) *Guard {
	return &Guard{confirm: confirm}
}

// OpenForRead opens path for reading. When ignorable is set and the file
// does not exist, a confirmed ignore returns (nil, false, nil) so the caller
// can tell tolerated absence apart from a hard failure.
func (g *Guard) OpenForRead(path string, ignorable bool) (*os.File, bool, error) {
	f, err := os.Open(path)
	if err == nil {
		return f, true, nil
	}
	if ignorable && os.IsNotExist(err) {
		if g.confirm.Confirm(fmt.Sprintf("file %q doesn't exist, ignore?", path)) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%w: file doesn't exist at %q", ErrDeclined, path)
	}
	return nil, false, err
}

// OpenForWrite creates path for writing, asking before truncating an
// existing file.
func (g *Guard) OpenForWrite(path string) (*os.File, error) {
	if _, err := os.Stat(path); err == nil {
		if !g.confirm.Confirm(fmt.Sprintf("file %q already exists, overwrite?", path)) {
			return nil, fmt.Errorf("%w: file already exists at %q", ErrDeclined, path)
		}
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
}

// CreateDir makes path, asking before replacing an existing directory.
func (g *Guard) CreateDir(path string) error {
	if _, err := os.Stat(path); err == nil {
		if !g.confirm.Confirm(fmt.Sprintf("directory %q already exists, overwrite?", path)) {
			return fmt.Errorf("%w: directory already exists at %q", ErrDeclined, path)
		}
		if err := os.RemoveAll(path); err != nil {
			return err
		}
	}
	return os.MkdirAll(path, 0o755)
}

// DeletePaths removes every given file or directory, continuing past
// individual failures and reporting them together.
func DeletePaths(paths []string) error {
	var errs []error
	for _, path := range paths {
		if err := os.RemoveAll(path); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Package ipfs is a content store backed by the local Kubo "ipfs" CLI.
package ipfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/ipfs/go-cid"

	"github.com/decentraland/catalyst-commons-go/hashing"
	"github.com/decentraland/catalyst-commons-go/storage"
)

// Store adds content to the local IPFS repo as UnixFS files, so objects are
// addressable by the same identifiers the hashing package computes.
//
// Properties:
//   - Offline: every command runs with --offline against the local repo.
//   - Verified: Store checks the identifier Kubo reports and Retrieve
//     re-hashes the bytes it reads.
//
// The adapter shells out to the Kubo CLI; it does not embed a network client.
type Store struct {
	bin string
	env []string
	pin bool
}

var _ storage.ContentStore = (*Store)(nil)

type Options struct {
	// Bin is the path to the ipfs binary. If empty, "ipfs" is used.
	Bin string
	// Env optionally overrides the command environment (e.g. to set IPFS_PATH).
	// If nil, the process environment is used.
	Env []string
	// Pin pins added content so repo GC keeps it.
	Pin bool
}

func New(opts Options) *Store {
	bin := opts.Bin
	if bin == "" {
		bin = "ipfs"
	}
	return &Store{bin: bin, env: opts.Env, pin: opts.Pin}
}

// addArgs returns the "ipfs add" arguments that reproduce family's layout.
func (s *Store) addArgs(family hashing.Family) ([]string, error) {
	args := []string{
		"--offline", "add",
		"--quiet",
		"--chunker=size-" + strconv.Itoa(hashing.ChunkSize),
		"--pin=" + strconv.FormatBool(s.pin),
	}
	switch family {
	case hashing.FamilyLegacy:
		args = append(args, "--cid-version=0", "--raw-leaves=false")
	case hashing.FamilyModern:
		args = append(args, "--cid-version=1", "--raw-leaves=true")
	default:
		return nil, storage.ErrInvalidHash
	}
	return args, nil
}

func (s *Store) Store(ctx context.Context, id cid.Cid, data []byte) error {
	if err := storage.Verify(id, data); err != nil {
		return err
	}
	args, err := s.addArgs(hashing.FamilyOfCID(id))
	if err != nil {
		return err
	}
	out, err := s.run(ctx, data, args...)
	if err != nil {
		return err
	}
	got, err := cid.Decode(strings.TrimSpace(string(out)))
	if err != nil {
		return fmt.Errorf("ipfs: unexpected add output: %w", err)
	}
	if !got.Equals(id) {
		return fmt.Errorf("%w: ipfs reported %s for %s", storage.ErrHashMismatch, got, id)
	}
	return nil
}

func (s *Store) Retrieve(ctx context.Context, id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidHash
	}
	out, err := s.run(ctx, nil, "--offline", "cat", id.String())
	if err != nil {
		if isLikelyNotFound(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	if err := storage.Verify(id, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Exists(ctx context.Context, id cid.Cid) (bool, error) {
	if !id.Defined() {
		return false, nil
	}
	_, err := s.run(ctx, nil, "--offline", "block", "stat", id.String())
	if err == nil {
		return true, nil
	}
	if isLikelyNotFound(err) {
		return false, nil
	}
	return false, err
}

func (s *Store) run(ctx context.Context, stdin []byte, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, s.bin, args...)
	if s.env != nil {
		cmd.Env = s.env
	}
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	out, err := cmd.Output()
	if err == nil {
		return out, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var ee *exec.ExitError
	if errors.As(err, &ee) {
		msg := strings.TrimSpace(string(ee.Stderr))
		if msg == "" {
			return nil, fmt.Errorf("ipfs: %v", err)
		}
		return nil, fmt.Errorf("ipfs: %s", msg)
	}
	return nil, err
}

func isLikelyNotFound(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found")
}

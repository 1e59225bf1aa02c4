package errors_test

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	pkgerrors "github.com/joe/gosync/pkg/errors"
)

func TestConnectionError_UnwrapsCause(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	cause := errors.New("dial tcp: connection refused")
	err := fmt.Errorf("pass: %w", &pkgerrors.ConnectionError{Host: "example.org", Attempts: 3, Err: cause})

	var connErr *pkgerrors.ConnectionError
	g.Expect(errors.As(err, &connErr)).Should(BeTrue())
	g.Expect(connErr.Attempts).Should(Equal(3))
	g.Expect(errors.Is(err, cause)).Should(BeTrue())
	g.Expect(err.Error()).Should(ContainSubstring("after 3 attempts"))
}

func TestListingError_ReportsStage(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	err := &pkgerrors.ListingError{Stage: pkgerrors.ListingStageFetch, Err: fs.ErrNotExist}

	g.Expect(err.Error()).Should(ContainSubstring("(fetch)"))
	g.Expect(errors.Is(err, fs.ErrNotExist)).Should(BeTrue())
}

func TestTransferError_WithoutCause(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	err := &pkgerrors.TransferError{Path: "a.txt", Reason: "local file is a directory"}

	g.Expect(err.Error()).Should(Equal("transfer of a.txt failed: local file is a directory"))
	g.Expect(errors.Unwrap(err)).Should(BeNil())
}

func TestMissingSetting(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	err := pkgerrors.MissingSetting("ssh.remote_path")

	g.Expect(err.Field).Should(Equal("ssh.remote_path"))
	g.Expect(err.Error()).Should(Equal("config ssh.remote_path: required setting is not set"))
}

//nolint:varnamelen // Test files use idiomatic short variable names (t, g, etc.)
package syncengine_test

import (
	"context"
	"errors"
	"os"
	"path"
	"testing"
	"time"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/gosync/internal/syncengine"
	pkgerrors "github.com/joe/gosync/pkg/errors"
	"github.com/joe/gosync/pkg/filesystem"
)

func fastLister(t *testing.T) *syncengine.CommandLister {
	t.Helper()

	lister := syncengine.NewCommandLister(filesystem.NewRealFileSystem())
	lister.LocalTempDir = t.TempDir()
	lister.Wait = 50 * time.Millisecond
	lister.Poll = 5 * time.Millisecond
	lister.Logger = quietLogger()

	return lister
}

func TestListingCommandQuotesPaths(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	g.Expect(syncengine.ListingCommand("/srv/it's here", "/tmp/out.txt")).
		To(Equal(`find '/srv/it'\''s here' -type f -printf '%P\n' > '/tmp/out.txt'`))
}

func TestCommandListerReturnsRemoteFiles(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	remote := filesystem.NewMockRemote()
	remote.AddFile(remoteRoot+"/a.txt", []byte("a"))
	remote.AddFile(remoteRoot+"/dir/b.txt", []byte("b"))
	remote.AddSymlink(remoteRoot + "/link")
	remote.SetRunHandler(serveFind(remote))

	lister := fastLister(t)

	files, err := lister.List(context.Background(), remote, remoteRoot)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(files).To(ConsistOf("a.txt", "dir/b.txt"))

	g.Expect(remote.Commands()).To(HaveLen(1))
	g.Expect(remote.ListFiles()).NotTo(ContainElement(HavePrefix("/tmp/")), "remote temp file removed")

	entries, err := os.ReadDir(lister.LocalTempDir)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(entries).To(BeEmpty(), "local temp file removed")
}

func TestCommandListerEmptyRemoteIsNotAnError(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	remote := filesystem.NewMockRemote()
	remote.AddDir(remoteRoot)
	remote.SetRunHandler(serveFind(remote))

	files, err := fastLister(t).List(context.Background(), remote, remoteRoot)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(files).To(BeEmpty())
}

func TestCommandListerSkipsBlankLinesAndItsOwnFile(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	remote := filesystem.NewMockRemote()
	lister := fastLister(t)
	lister.RemoteTempDir = remoteRoot + "/.cache"

	remote.SetRunHandler(func(_ context.Context, cmd string) ([]byte, error) {
		out := listingCommand.FindStringSubmatch(cmd)[2]
		remote.AddFile(out, []byte("a.txt\r\n\n.cache/"+path.Base(out)+"\nsub/b.txt\n"))

		return nil, nil
	})

	files, err := lister.List(context.Background(), remote, remoteRoot)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(files).To(Equal([]string{"a.txt", "sub/b.txt"}))
}

func TestCommandListerToleratesCommandErrorWhenListingExists(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	remote := filesystem.NewMockRemote()
	remote.AddFile(remoteRoot+"/a.txt", []byte("a"))

	find := serveFind(remote)
	remote.SetRunHandler(func(ctx context.Context, cmd string) ([]byte, error) {
		_, _ = find(ctx, cmd)

		return []byte("find: 'private': Permission denied"), errors.New("exit status 1") //nolint:err113 // Test double
	})

	files, err := fastLister(t).List(context.Background(), remote, remoteRoot)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(files).To(Equal([]string{"a.txt"}))
}

func TestCommandListerFailsWhenCommandFailsWithEmptyListing(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	remote := filesystem.NewMockRemote()
	remote.AddFile(remoteRoot+"/already-there.txt", []byte("a"))
	remote.SetRunHandler(func(_ context.Context, cmd string) ([]byte, error) {
		out := listingCommand.FindStringSubmatch(cmd)[2]
		remote.AddFile(out, nil)

		return []byte("find: unrecognized: -printf"), errors.New("exit status 1") //nolint:err113 // Test double
	})

	files, err := fastLister(t).List(context.Background(), remote, remoteRoot)
	g.Expect(files).To(BeNil())

	var listingErr *pkgerrors.ListingError
	g.Expect(errors.As(err, &listingErr)).To(BeTrue())
	g.Expect(listingErr.Stage).To(Equal(pkgerrors.ListingStageCreate))
	g.Expect(err.Error()).To(ContainSubstring("exit status 1"))
	g.Expect(remote.ListFiles()).To(Equal([]string{remoteRoot + "/already-there.txt"}), "temp listing removed")
}

func TestCommandListerFailsWhenListingNeverAppears(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	remote := filesystem.NewMockRemote()
	remote.SetRunHandler(func(context.Context, string) ([]byte, error) { return nil, nil })

	_, err := fastLister(t).List(context.Background(), remote, remoteRoot)

	var listingErr *pkgerrors.ListingError
	g.Expect(errors.As(err, &listingErr)).To(BeTrue())
	g.Expect(listingErr.Stage).To(Equal(pkgerrors.ListingStageCreate))
}

func TestCommandListerStopsWaitingOnCancel(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	remote := filesystem.NewMockRemote()
	remote.SetRunHandler(func(context.Context, string) ([]byte, error) { return nil, nil })

	lister := fastLister(t)
	lister.Wait = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := lister.List(ctx, remote, remoteRoot)
	g.Expect(err).To(MatchError(context.Canceled))
}

func TestWalkListerExcludesNonRegularEntries(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	remote := filesystem.NewMockRemote()
	remote.AddFile(remoteRoot+"/a.txt", []byte("a"))
	remote.AddDir(remoteRoot + "/empty")
	remote.AddSymlink(remoteRoot + "/link")

	files, err := syncengine.WalkLister{}.List(context.Background(), remote, remoteRoot)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(files).To(Equal([]string{"a.txt"}))
}

func TestWalkListerWrapsFailures(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	remote := filesystem.NewMockRemote()

	_, err := syncengine.WalkLister{}.List(context.Background(), remote, "/missing")

	var listingErr *pkgerrors.ListingError
	g.Expect(errors.As(err, &listingErr)).To(BeTrue())
	g.Expect(listingErr.Stage).To(Equal(pkgerrors.ListingStageFetch))
}

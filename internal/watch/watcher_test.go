package watch_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // Dot import is idiomatic for Ginkgo
	. "github.com/onsi/gomega"    //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/gosync/internal/syncengine"
	"github.com/joe/gosync/internal/watch"
)

type fakeRequester struct {
	calls  atomic.Int32
	accept atomic.Bool
}

func (f *fakeRequester) RequestPass(context.Context) bool {
	f.calls.Add(1)

	return f.accept.Load()
}

func writeFile(path, content string) {
	GinkgoHelper()
	Expect(os.MkdirAll(filepath.Dir(path), 0o750)).To(Succeed())
	Expect(os.WriteFile(path, []byte(content), 0o600)).To(Succeed())
}

var _ = Describe("Watcher", func() {
	var (
		root      string
		pending   *syncengine.PendingSet
		requester *fakeRequester
		watcher   *watch.Watcher
		cancel    context.CancelFunc
	)

	BeforeEach(func() {
		root = GinkgoT().TempDir()
		pending = syncengine.NewPendingSet()
		requester = &fakeRequester{}
		requester.accept.Store(true)

		writeFile(filepath.Join(root, "existing", "old.txt"), "old")

		var err error
		watcher, err = watch.New(root, pending, requester)
		Expect(err).NotTo(HaveOccurred())

		watcher.Debounce = 100 * time.Millisecond
		watcher.Filter = syncengine.NewExcludeFilter([]string{"*.tmp"})
		watcher.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	})

	AfterEach(func() {
		if cancel != nil {
			cancel()
		}

		Expect(watcher.Close()).To(Succeed())
	})

	run := func() {
		Expect(watcher.Start()).To(Succeed())

		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())

		go func() {
			defer GinkgoRecover()
			_ = watcher.Run(ctx)
		}()
	}

	Describe("Start", func() {
		It("watches the root and its existing subdirectories", func() {
			run()

			Expect(watcher.Watched()).To(ConsistOf(root, filepath.Join(root, "existing")))
		})

		It("does not mark existing files pending", func() {
			run()

			Expect(pending.Len()).To(BeZero())
		})

		It("fails for a missing root", func() {
			missing, err := watch.New(filepath.Join(root, "absent"), pending, requester)
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(missing.Close)

			Expect(missing.Start()).To(MatchError(watch.ErrDirNotExist))
		})
	})

	Describe("file changes", func() {
		It("marks a new file pending and requests a pass", func() {
			run()

			path := filepath.Join(root, "notes.txt")
			writeFile(path, "hello")

			Eventually(func() bool { return pending.Contains(path) }).Should(BeTrue())
			Eventually(requester.calls.Load).Should(BeNumerically(">=", 1))
		})

		It("collapses a burst of writes into one request", func() {
			run()

			path := filepath.Join(root, "growing.log")
			for i := range 5 {
				writeFile(path, string(rune('a'+i)))
			}

			Eventually(requester.calls.Load).Should(Equal(int32(1)))
			Consistently(requester.calls.Load, 300*time.Millisecond).Should(Equal(int32(1)))
		})

		It("ignores excluded files", func() {
			run()

			path := filepath.Join(root, "scratch.tmp")
			writeFile(path, "x")

			Consistently(func() bool { return pending.Contains(path) }, 300*time.Millisecond).Should(BeFalse())
			Expect(requester.calls.Load()).To(BeZero())
		})

		It("keeps the file pending when the request is dropped", func() {
			requester.accept.Store(false)
			run()

			path := filepath.Join(root, "later.txt")
			writeFile(path, "x")

			Eventually(requester.calls.Load).Should(BeNumerically(">=", 1))
			Expect(pending.Contains(path)).To(BeTrue())
		})
	})

	Describe("directory changes", func() {
		It("extends the watch to a new subdirectory", func() {
			run()

			dir := filepath.Join(root, "new", "deeper")
			Expect(os.MkdirAll(dir, 0o750)).To(Succeed())

			Eventually(watcher.Watched).Should(ContainElements(filepath.Join(root, "new"), dir))

			path := filepath.Join(dir, "inside.txt")
			writeFile(path, "x")

			Eventually(func() bool { return pending.Contains(path) }).Should(BeTrue())
		})

		It("drops removed subdirectories from the tree", func() {
			run()

			Expect(os.RemoveAll(filepath.Join(root, "existing"))).To(Succeed())

			Eventually(watcher.Watched).Should(Equal([]string{root}))
		})
	})

	Describe("AddSubtree", func() {
		It("marks files already inside the subtree pending", func() {
			Expect(watcher.Start()).To(Succeed())

			writeFile(filepath.Join(root, "batch", "a.txt"), "a")
			writeFile(filepath.Join(root, "batch", "sub", "b.txt"), "b")
			writeFile(filepath.Join(root, "batch", "c.tmp"), "c")

			seeded, err := watcher.AddSubtree(filepath.Join(root, "batch"))
			Expect(err).NotTo(HaveOccurred())
			Expect(seeded).To(Equal(2))
			Expect(pending.Snapshot()).To(Equal([]string{
				filepath.Join(root, "batch", "a.txt"),
				filepath.Join(root, "batch", "sub", "b.txt"),
			}))
			Expect(watcher.Watched()).To(ContainElement(filepath.Join(root, "batch", "sub")))
		})

		It("fails after Close", func() {
			Expect(watcher.Close()).To(Succeed())

			_, err := watcher.AddSubtree(root)
			Expect(err).To(MatchError(watch.ErrWatcherClosed))
		})
	})
})

//nolint:varnamelen // Test files use idiomatic short variable names (t, tt, etc.)
package config_test

import (
	"testing"
	"time"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/gosync/internal/config"
)

func TestConfigDescription(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	cfg := config.Config{}
	g.Expect(cfg.Description()).NotTo(BeEmpty())
	g.Expect(cfg.Version()).To(HavePrefix("gosync"))
}

func TestParseArgsDefaults(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	cfg, err := config.ParseArgs(nil)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(cfg.Once).To(BeFalse())
	g.Expect(cfg.Auto).To(BeFalse())
	g.Expect(cfg.IntervalDuration()).To(BeZero())
	g.Expect(cfg.RemoteTarget).To(BeNil())
}

func TestParseArgsFlags(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	cfg, err := config.ParseArgs([]string{
		"--config", "/tmp/gosync.json",
		"--auto", "--interval", "60",
		"--no-watch", "--headless", "-v",
		"--remote", "sftp://joe@nas:2222//srv/sync",
		"--local", "/data/photos",
	})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(cfg.ConfigPath).To(Equal("/tmp/gosync.json"))
	g.Expect(cfg.Auto).To(BeTrue())
	g.Expect(cfg.IntervalDuration()).To(Equal(time.Minute))
	g.Expect(cfg.NoWatch).To(BeTrue())
	g.Expect(cfg.Headless).To(BeTrue())
	g.Expect(cfg.Verbose).To(BeTrue())
	g.Expect(cfg.LocalPath).To(Equal("/data/photos"))
	g.Expect(cfg.RemoteTarget).NotTo(BeNil())
	g.Expect(cfg.RemoteTarget.Host).To(Equal("nas"))
	g.Expect(cfg.RemoteTarget.Port).To(Equal(2222))
	g.Expect(cfg.RemoteTarget.User).To(Equal("joe"))
	g.Expect(cfg.RemoteTarget.Path).To(Equal("/srv/sync"))
}

func TestPostProcessConfigRejectsBadCombinations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     config.Config
		wantErr error
	}{
		{name: "once and auto", cfg: config.Config{Once: true, Auto: true}, wantErr: config.ErrConflictingModes},
		{name: "negative interval", cfg: config.Config{Interval: -1}, wantErr: config.ErrNegativeValue},
		{name: "negative history", cfg: config.Config{History: -5}, wantErr: config.ErrNegativeValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := NewWithT(t)

			cfg := tt.cfg
			_, err := config.PostProcessConfig(&cfg)
			g.Expect(err).To(MatchError(tt.wantErr))
		})
	}
}

func TestPostProcessConfigRejectsBadRemote(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	_, err := config.PostProcessConfig(&config.Config{Remote: "ftp://nas/srv"})
	g.Expect(err).To(MatchError(ContainSubstring("invalid --remote")))
}

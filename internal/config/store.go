package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"

	"github.com/joe/gosync/internal/syncengine"
	pkgerrors "github.com/joe/gosync/pkg/errors"
	"github.com/joe/gosync/pkg/filesystem"
)

// Exported constants.
const (
	// AppDir names the application's directory under the XDG config home.
	AppDir = "GOSync"
	// ConfigFileName is the settings file inside AppDir.
	ConfigFileName = "config.json"
	// EnvPrefix prefixes environment overrides, e.g. GOSYNC_SSH_PASSWORD.
	EnvPrefix = "GOSYNC"
	// DefaultSyncInterval is the default sync.sync_interval in seconds.
	DefaultSyncInterval = 300
	// DefaultLocalPath is the default sync.local_path.
	DefaultLocalPath = "~/GOSyncFiles"
)

// The file may hold a password or a private key.
const configPermissions = 0o600

// Setting keys.
const (
	KeyHostname   = "ssh.hostname"
	KeyPort       = "ssh.port"
	KeyUsername   = "ssh.username"
	KeyRemotePath = "ssh.remote_path"
	KeySSHKey     = "ssh.ssh_key"
	KeyKeyPath    = "ssh.key_path"
	KeyPassword   = "ssh.password"
	KeyKnownHosts = "ssh.known_hosts"
	KeyAutoSync   = "sync.auto_sync"
	KeyInterval   = "sync.sync_interval"
	KeyLocalPath  = "sync.local_path"
	KeyExclude    = "sync.exclude"
	KeyListing    = "sync.listing"
)

// DefaultPath returns <XDG config home>/GOSync/config.json, creating the directory.
func DefaultPath() (string, error) {
	path, err := xdg.ConfigFile(filepath.Join(AppDir, ConfigFileName))
	if err != nil {
		return "", fmt.Errorf("failed to resolve config path: %w", err)
	}

	return path, nil
}

// Overrides are command-line values that win over the file and the environment.
type Overrides struct {
	Remote    *filesystem.RemoteTarget
	LocalPath string
	AutoSync  bool
}

// Store reads and writes the JSON settings file. Every read goes back to the
// file, so edits made while the program runs apply to the next connect or pass.
type Store struct {
	Overrides Overrides

	path string
	mu   sync.Mutex
}

// NewStore creates a Store for the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the settings file path.
func (s *Store) Path() string {
	return s.path
}

// EnsureDefault writes the default settings when the file does not exist.
// It reports whether a file was written.
func (s *Store) EnsureDefault() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := os.Stat(s.path)
	if err == nil {
		return false, nil
	}

	if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("failed to check config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigPermissions(configPermissions)
	setDefaults(v)

	if err := v.WriteConfigAs(s.path); err != nil {
		return false, fmt.Errorf("failed to write default config: %w", err)
	}

	return true, nil
}

// RemoteCredentials returns the configured remote and auth variant. An inline
// ssh_key wins over key_path, which wins over password; with none of them the
// ssh-agent and default keys are used.
func (s *Store) RemoteCredentials() (filesystem.RemoteCredentials, error) {
	v, err := s.load()
	if err != nil {
		return filesystem.RemoteCredentials{}, err
	}

	creds := filesystem.RemoteCredentials{
		Hostname:       v.GetString(KeyHostname),
		Port:           v.GetInt(KeyPort),
		Username:       v.GetString(KeyUsername),
		RemoteBasePath: v.GetString(KeyRemotePath),
		KnownHostsPath: expandHome(v.GetString(KeyKnownHosts)),
	}

	required := []struct{ key, value string }{
		{KeyHostname, creds.Hostname},
		{KeyUsername, creds.Username},
		{KeyRemotePath, creds.RemoteBasePath},
	}

	for _, setting := range required {
		if strings.TrimSpace(setting.value) == "" {
			return filesystem.RemoteCredentials{}, pkgerrors.MissingSetting(setting.key)
		}
	}

	creds.Auth, err = resolveAuth(v)
	if err != nil {
		return filesystem.RemoteCredentials{}, err
	}

	return creds, nil
}

// SyncSettings returns the sync preferences.
func (s *Store) SyncSettings() (syncengine.SyncSettings, error) {
	v, err := s.load()
	if err != nil {
		return syncengine.SyncSettings{}, err
	}

	localPath := strings.TrimSpace(v.GetString(KeyLocalPath))
	if localPath == "" {
		return syncengine.SyncSettings{}, pkgerrors.MissingSetting(KeyLocalPath)
	}

	listing := v.GetString(KeyListing)
	if listing != syncengine.ListingModeCommand && listing != syncengine.ListingModeSFTP {
		return syncengine.SyncSettings{}, &pkgerrors.ConfigError{
			Field:  KeyListing,
			Reason: fmt.Sprintf("unknown listing mode %q (use %q or %q)", listing, syncengine.ListingModeCommand, syncengine.ListingModeSFTP),
		}
	}

	interval := v.GetInt(KeyInterval)
	if interval <= 0 {
		interval = DefaultSyncInterval
	}

	return syncengine.SyncSettings{
		LocalPath: expandHome(localPath),
		AutoSync:  v.GetBool(KeyAutoSync),
		Interval:  time.Duration(interval) * time.Second,
		Exclude:   v.GetStringSlice(KeyExclude),
		Listing:   listing,
	}, nil
}

// SaveSyncSettings writes the sync preferences to the file.
func (s *Store) SaveSyncSettings(settings syncengine.SyncSettings) error {
	return s.update(func(v *viper.Viper) {
		v.Set(KeyLocalPath, settings.LocalPath)
		v.Set(KeyAutoSync, settings.AutoSync)
		v.Set(KeyInterval, int(settings.Interval/time.Second))
		v.Set(KeyExclude, settings.Exclude)

		if settings.Listing != "" {
			v.Set(KeyListing, settings.Listing)
		}
	})
}

// SaveRemoteCredentials writes the remote and its auth variant to the file.
// The fields of the other auth variants are cleared.
func (s *Store) SaveRemoteCredentials(creds filesystem.RemoteCredentials) error {
	return s.update(func(v *viper.Viper) {
		v.Set(KeyHostname, creds.Hostname)
		v.Set(KeyPort, creds.Port)
		v.Set(KeyUsername, creds.Username)
		v.Set(KeyRemotePath, creds.RemoteBasePath)
		v.Set(KeyKnownHosts, creds.KnownHostsPath)
		v.Set(KeySSHKey, "")
		v.Set(KeyKeyPath, "")
		v.Set(KeyPassword, "")

		switch auth := creds.Auth.(type) {
		case filesystem.PrivateKeyAuth:
			v.Set(KeySSHKey, string(auth.PEM))
		case filesystem.PasswordAuth:
			v.Set(KeyPassword, auth.Password)
		}
	})
}

// load reads the file, the environment and the overrides into a fresh viper.
func (s *Store) load() (*viper.Viper, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(s.path)
	v.SetConfigType("json")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &pkgerrors.ConfigError{Field: "config", Reason: "no config file at " + s.path}
		}

		return nil, &pkgerrors.ConfigError{Field: "config", Reason: fmt.Sprintf("cannot read %s: %v", s.path, err)}
	}

	s.applyOverrides(v)

	return v, nil
}

func (s *Store) applyOverrides(v *viper.Viper) {
	if remote := s.Overrides.Remote; remote != nil {
		v.Set(KeyHostname, remote.Host)
		v.Set(KeyPort, remote.Port)
		v.Set(KeyRemotePath, remote.Path)

		if remote.User != "" {
			v.Set(KeyUsername, remote.User)
		}
	}

	if s.Overrides.LocalPath != "" {
		v.Set(KeyLocalPath, s.Overrides.LocalPath)
	}

	if s.Overrides.AutoSync {
		v.Set(KeyAutoSync, true)
	}
}

// update rewrites the file. Environment values and overrides are not persisted.
func (s *Store) update(apply func(v *viper.Viper)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := viper.New()
	v.SetConfigPermissions(configPermissions)
	setDefaults(v)
	v.SetConfigFile(s.path)
	v.SetConfigType("json")

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read config: %w", err)
	}

	apply(v)

	if err := v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyHostname, "")
	v.SetDefault(KeyPort, filesystem.DefaultSSHPort)
	v.SetDefault(KeyUsername, "")
	v.SetDefault(KeyRemotePath, "")
	v.SetDefault(KeySSHKey, "")
	v.SetDefault(KeyKeyPath, "")
	v.SetDefault(KeyPassword, "")
	v.SetDefault(KeyKnownHosts, "")
	v.SetDefault(KeyAutoSync, false)
	v.SetDefault(KeyInterval, DefaultSyncInterval)
	v.SetDefault(KeyLocalPath, DefaultLocalPath)
	v.SetDefault(KeyExclude, []string{})
	v.SetDefault(KeyListing, syncengine.ListingModeCommand)
}

func resolveAuth(v *viper.Viper) (filesystem.Auth, error) {
	if key := v.GetString(KeySSHKey); strings.TrimSpace(key) != "" {
		return filesystem.PrivateKeyAuth{PEM: []byte(key)}, nil
	}

	if keyPath := v.GetString(KeyKeyPath); strings.TrimSpace(keyPath) != "" {
		pem, err := os.ReadFile(expandHome(keyPath))
		if err != nil {
			return nil, &pkgerrors.ConfigError{Field: KeyKeyPath, Reason: fmt.Sprintf("cannot read key file: %v", err)}
		}

		return filesystem.PrivateKeyAuth{PEM: pem}, nil
	}

	if password := v.GetString(KeyPassword); password != "" {
		return filesystem.PasswordAuth{Password: password}, nil
	}

	return filesystem.AgentAuth{}, nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

package filesystem

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// RemoteTarget is the host, account and base path named by an sftp:// URL.
type RemoteTarget struct {
	Host string
	Port int
	User string
	Path string
}

// ParseRemoteURL parses an SFTP URL of the form sftp://user@host:port/path.
// Port is optional (defaults to 22).
//
//   - sftp://joe@myserver.com/backups   → "backups", relative to the login directory
//   - sftp://joe@myserver.com//srv/sync → "/srv/sync"
//   - sftp://joe@myserver.com           → "."
//
//nolint:cyclop // Complexity from SFTP URL validation (scheme, user, host, port, path)
func ParseRemoteURL(raw string) (*RemoteTarget, error) {
	u, err := url.Parse(raw) //nolint:varnamelen // u is idiomatic for URL
	if err != nil {
		return nil, fmt.Errorf("invalid SFTP URL: %w", err)
	}

	if u.Scheme != "sftp" {
		return nil, fmt.Errorf("expected sftp:// scheme, got %q", u.Scheme) //nolint:err113 // URL validation with actual scheme
	}

	if u.User == nil || u.User.Username() == "" {
		return nil, fmt.Errorf("SFTP URL must include username (sftp://user@host/path)") //nolint:err113,perfsprint // URL validation with format guidance
	}

	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("SFTP URL must include host") //nolint:err113,perfsprint // URL validation error
	}

	port := DefaultSSHPort
	if portStr := u.Port(); portStr != "" {
		p, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid port number: %w", err)
		}

		port = p
	}

	remotePath := u.Path
	//nolint:gocritic // if-else chain is clearer than switch for mixed conditions
	if remotePath == "" || remotePath == "/" {
		remotePath = "."
	} else if strings.HasPrefix(remotePath, "//") {
		remotePath = remotePath[1:]
	} else {
		remotePath = strings.TrimPrefix(remotePath, "/")
	}

	return &RemoteTarget{
		Host: host,
		Port: port,
		User: u.User.Username(),
		Path: remotePath,
	}, nil
}

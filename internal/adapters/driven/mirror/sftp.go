package mirror

import (
	"context"
	"fmt"
	"net"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/custodia-labs/ksef-desk/internal/core/domain"
	"github.com/custodia-labs/ksef-desk/internal/core/ports/driven"
	"github.com/custodia-labs/ksef-desk/internal/logger"
)

// Ensure SFTP implements the interface.
var _ driven.ArtifactMirror = (*SFTP)(nil)

// SFTP stores artifacts on an SFTP server. A connection is opened per upload.
type SFTP struct {
	addr     string
	user     string
	password string
	keyPath  string
	baseDir  string
	// knownHosts is the known_hosts file used to verify the server; empty
	// disables host key verification.
	knownHosts string
}

// NewSFTP creates an SFTP mirror from settings.
func NewSFTP(settings domain.MirrorSettings) (*SFTP, error) {
	if settings.SFTPHost == "" || settings.SFTPUser == "" {
		return nil, domain.NewValidationError("mirror.sftp", "host and user are required")
	}
	if settings.SFTPPassword == "" && settings.SFTPKeyPath == "" {
		return nil, domain.NewValidationError("mirror.sftp", "password or key_path is required")
	}
	port := settings.SFTPPort
	if port == 0 {
		port = 22
	}

	s := &SFTP{
		addr:     net.JoinHostPort(settings.SFTPHost, strconv.Itoa(port)),
		user:     settings.SFTPUser,
		password: settings.SFTPPassword,
		keyPath:  settings.SFTPKeyPath,
		baseDir:  settings.SFTPBaseDir,
	}
	if home, err := os.UserHomeDir(); err == nil {
		kh := filepath.Join(home, ".ssh", "known_hosts")
		if _, err := os.Stat(kh); err == nil {
			s.knownHosts = kh
		}
	}
	if s.knownHosts == "" {
		logger.Warn("SFTP mirror %s: no known_hosts file, host key will not be verified", s.addr)
	}
	return s, nil
}

// Name returns the target name.
func (s *SFTP) Name() string {
	return TargetSFTP
}

// Store uploads one artifact.
func (s *SFTP) Store(ctx context.Context, identity domain.Identity, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	client, err := s.newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	remotePath := s.remotePath(identity, name)
	if err := client.MkdirAll(path.Dir(remotePath)); err != nil {
		return fmt.Errorf("create %s: %w", path.Dir(remotePath), err)
	}
	f, err := client.OpenFile(remotePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC)
	if err != nil {
		return fmt.Errorf("open %s: %w", remotePath, err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", remotePath, err)
	}
	return nil
}

func (s *SFTP) newClient() (*sftp.Client, error) {
	auths, err := s.authMethods()
	if err != nil {
		return nil, err
	}

	hostKey := ssh.InsecureIgnoreHostKey() //nolint:gosec // opt-in when no known_hosts file exists
	if s.knownHosts != "" {
		hostKey, err = knownhosts.New(s.knownHosts)
		if err != nil {
			return nil, fmt.Errorf("load known_hosts: %w", err)
		}
	}

	conn, err := ssh.Dial("tcp", s.addr, &ssh.ClientConfig{
		User:            s.user,
		Auth:            auths,
		HostKeyCallback: hostKey,
		Timeout:         10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("ssh dial %s: %w", s.addr, err)
	}
	client, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("start sftp: %w", err)
	}
	return client, nil
}

func (s *SFTP) authMethods() ([]ssh.AuthMethod, error) {
	var auths []ssh.AuthMethod
	if s.keyPath != "" {
		key, err := os.ReadFile(s.keyPath)
		if err != nil {
			return nil, fmt.Errorf("read key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("parse key: %w", err)
		}
		auths = append(auths, ssh.PublicKeys(signer))
	}
	if s.password != "" {
		auths = append(auths, ssh.Password(s.password))
	}
	return auths, nil
}

func (s *SFTP) remotePath(identity domain.Identity, name string) string {
	return objectKey(strings.TrimSuffix(strings.TrimSpace(s.baseDir), "/"), identity, name)
}

package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"path"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/smartfile/service/internal/config"
)

const (
	sftpConnectTimeout = 10 * time.Second
	sftpSessionTimeout = 30 * time.Second
)

// remoteConn is the slice of the SFTP client the store actually uses.
// Tests substitute a fake through the store's dial function.
type remoteConn interface {
	Stat(path string) (os.FileInfo, error)
	Mkdir(path string) error
	Create(path string) (io.WriteCloser, error)
	Open(path string) (io.ReadCloser, error)
	Remove(path string) error
	Close() error
}

// SFTPStore stores files on a remote server over SFTP. Each operation opens
// its own authenticated session and releases it before returning; nothing is
// pooled or shared between calls.
type SFTPStore struct {
	host       string
	port       int
	user       string
	remotePath string
	urlPrefix  string

	dial func(ctx context.Context) (remoteConn, error)
	now  func() time.Time
}

// NewSFTPStore builds an SFTP-backed FileStore from configuration.
func NewSFTPStore(cfg *config.Config) *SFTPStore {
	s := &SFTPStore{
		host:       cfg.SFTPHost,
		port:       cfg.SFTPPort,
		user:       cfg.SFTPUsername,
		remotePath: cfg.SFTPRemotePath,
		urlPrefix:  cfg.SFTPURLPrefix,
		now:        time.Now,
	}
	s.dial = func(ctx context.Context) (remoteConn, error) {
		return dialSFTP(ctx, cfg)
	}
	return s
}

// sftpConn couples the SSH connection with its SFTP subsystem channel so both
// are released together.
type sftpConn struct {
	ssh  *ssh.Client
	sftp *sftp.Client
}

func (c *sftpConn) Stat(path string) (os.FileInfo, error) { return c.sftp.Stat(path) }
func (c *sftpConn) Mkdir(path string) error               { return c.sftp.Mkdir(path) }
func (c *sftpConn) Remove(path string) error              { return c.sftp.Remove(path) }

func (c *sftpConn) Create(path string) (io.WriteCloser, error) { return c.sftp.Create(path) }
func (c *sftpConn) Open(path string) (io.ReadCloser, error)    { return c.sftp.Open(path) }

func (c *sftpConn) Close() error {
	sftpErr := c.sftp.Close()
	sshErr := c.ssh.Close()
	if sftpErr != nil {
		return sftpErr
	}
	return sshErr
}

// deadlineConn enforces an idle timeout: every read and write arms a fresh
// deadline, so a stalled transfer fails instead of hanging forever.
type deadlineConn struct {
	net.Conn
	timeout time.Duration
}

func (c *deadlineConn) Read(b []byte) (int, error) {
	if err := c.Conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Read(b)
}

func (c *deadlineConn) Write(b []byte) (int, error) {
	if err := c.Conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Write(b)
}

// dialSFTP establishes the transport session: TCP connect, SSH handshake with
// password auth, then the SFTP subsystem channel.
func dialSFTP(ctx context.Context, cfg *config.Config) (remoteConn, error) {
	hostKey, err := hostKeyCallback(cfg.SFTPKnownHosts)
	if err != nil {
		return nil, err
	}

	sshCfg := &ssh.ClientConfig{
		User:            cfg.SFTPUsername,
		Auth:            []ssh.AuthMethod{ssh.Password(cfg.SFTPPassword)},
		HostKeyCallback: hostKey,
		Timeout:         sftpConnectTimeout,
	}

	addr := net.JoinHostPort(cfg.SFTPHost, fmt.Sprintf("%d", cfg.SFTPPort))
	d := net.Dialer{Timeout: sftpConnectTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	tconn := &deadlineConn{Conn: conn, timeout: sftpSessionTimeout}
	sshConn, chans, reqs, err := ssh.NewClientConn(tconn, addr, sshCfg)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s: %w", addr, err)
	}
	sshClient := ssh.NewClient(sshConn, chans, reqs)

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, fmt.Errorf("open sftp channel: %w", err)
	}

	return &sftpConn{ssh: sshClient, sftp: sftpClient}, nil
}

// hostKeyCallback returns a known-hosts verifier when a file is configured.
// With no file the host key is not verified, matching the long-standing
// behavior of this service; set STORAGE_SFTP_KNOWN_HOSTS to harden.
func hostKeyCallback(knownHostsFile string) (ssh.HostKeyCallback, error) {
	if knownHostsFile == "" {
		return ssh.InsecureIgnoreHostKey(), nil //nolint:gosec
	}
	cb, err := knownhosts.New(knownHostsFile)
	if err != nil {
		return nil, fmt.Errorf("load known_hosts %s: %w", knownHostsFile, err)
	}
	return cb, nil
}

func (s *SFTPStore) connect(ctx context.Context) (remoteConn, error) {
	conn, err := s.dial(ctx)
	if err != nil {
		log.Printf("sftp connection failed host=%s port=%d user=%s: %v", s.host, s.port, s.user, err)
		return nil, &ConnectionError{Host: s.host, Port: s.port, User: s.user, Err: err}
	}
	return conn, nil
}

// Upload stores src on the remote server under a generated date-partitioned
// key, creating missing remote directories level by level.
func (s *SFTPStore) Upload(ctx context.Context, src io.Reader, name string, size int64, folder string) (*UploadResult, error) {
	if src == nil || size <= 0 {
		return nil, invalidArg("file must not be empty")
	}

	conn, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	key := buildUploadKey(folder, name, s.now())
	remoteDir := normalizePath(s.remotePath + "/" + path.Dir(key))
	remoteFile := normalizePath(s.remotePath + "/" + key)

	if err := ensureRemoteDir(conn, remoteDir); err != nil {
		log.Printf("sftp ensure directory %s failed: %v", remoteDir, err)
		return nil, &OperationError{Op: "upload", Path: remoteDir, Err: err}
	}

	f, err := conn.Create(remoteFile)
	if err != nil {
		log.Printf("sftp create %s failed: %v", remoteFile, err)
		return nil, &OperationError{Op: "upload", Path: remoteFile, Err: err}
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		log.Printf("sftp transfer to %s failed: %v", remoteFile, err)
		return nil, &OperationError{Op: "upload", Path: remoteFile, Err: err}
	}
	if err := f.Close(); err != nil {
		return nil, &OperationError{Op: "upload", Path: remoteFile, Err: err}
	}

	log.Printf("sftp upload ok: %s -> %s", name, remoteFile)
	return &UploadResult{
		FileKey:  key,
		FileName: name,
		FileSize: size,
		FileType: fileExtension(name),
		FileURL:  s.urlPrefix + key,
	}, nil
}

// Download reads the remote object behind key fully into memory. No size cap
// is applied here; callers enforce limits upstream.
func (s *SFTPStore) Download(ctx context.Context, key string) (*DownloadResult, error) {
	if strings.TrimSpace(key) == "" {
		return nil, invalidArg("file key must not be empty")
	}

	conn, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	remoteFile := normalizePath(s.remotePath + "/" + key)
	f, err := conn.Open(remoteFile)
	if err != nil {
		log.Printf("sftp open %s failed: %v", remoteFile, err)
		return nil, &OperationError{Op: "download", Path: remoteFile, Err: err}
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		log.Printf("sftp read %s failed: %v", remoteFile, err)
		return nil, &OperationError{Op: "download", Path: remoteFile, Err: err}
	}

	return &DownloadResult{
		Data: data,
		Metadata: FileMetadata{
			FileName:    fileNameFromKey(key),
			ContentType: contentTypeForExtension(fileExtension(key)),
			FileSize:    int64(len(data)),
		},
	}, nil
}

// Delete removes the remote object behind key. A missing file surfaces as an
// OperationError; there is no idempotent already-deleted shortcut.
func (s *SFTPStore) Delete(ctx context.Context, key string) error {
	if strings.TrimSpace(key) == "" {
		return invalidArg("file key must not be empty")
	}

	conn, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	remoteFile := normalizePath(s.remotePath + "/" + key)
	if err := conn.Remove(remoteFile); err != nil {
		log.Printf("sftp remove %s failed: %v", remoteFile, err)
		return &OperationError{Op: "delete", Path: remoteFile, Err: err}
	}

	log.Printf("sftp delete ok: %s", remoteFile)
	return nil
}

// FileURL resolves a key to its public URL. The key is appended to the prefix
// byte-for-byte; unlike upload-side path construction no slash collapsing is
// applied, so the configured prefix controls the exact URL shape.
func (s *SFTPStore) FileURL(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", invalidArg("file key must not be empty")
	}
	return s.urlPrefix + "/" + key, nil
}

// ensureRemoteDir materializes dir on the remote server. A single probe
// handles the common case; otherwise the path is walked segment by segment,
// creating each missing level. SFTP paths are absolute and the client is
// stateless, so probing is a stat rather than a directory change.
func ensureRemoteDir(conn remoteConn, dir string) error {
	if info, err := conn.Stat(dir); err == nil {
		if !info.IsDir() {
			return fmt.Errorf("%s exists and is not a directory", dir)
		}
		return nil
	}

	cur := ""
	for _, seg := range strings.Split(dir, "/") {
		if seg == "" {
			continue
		}
		cur += "/" + seg
		if info, err := conn.Stat(cur); err == nil {
			if !info.IsDir() {
				return fmt.Errorf("%s exists and is not a directory", cur)
			}
			continue
		}
		// Missing level: create it. A failure here means a permission
		// problem or conflict, which is fatal for the whole walk.
		if err := conn.Mkdir(cur); err != nil {
			return fmt.Errorf("create directory %s: %w", cur, err)
		}
	}
	return nil
}

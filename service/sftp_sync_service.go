package service

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

const (
	defaultSSHPort = 22
	defaultSSHUser = "root"
)

var (
	ErrSSHServerIPRequired       = errors.New("storage server ip is required")
	ErrSSHPrivateKeyPathRequired = errors.New("ssh private key path is required")
	ErrArtifactDirNotFound       = errors.New("artifact run dir not found")
	ErrRemoteRootRequired        = errors.New("storage server root is required")
)

var defaultSSHTimeout = 15 * time.Second

// SyncResult 一次产物同步的结果
type SyncResult struct {
	ServerKey string        `json:"server_key"`
	ServerIP  string        `json:"server_ip"`
	ModelID   string        `json:"model_id"`
	RemoteDir string        `json:"remote_dir"`
	FileCount int           `json:"file_count"`
	Bytes     int64         `json:"bytes"`
	Cost      time.Duration `json:"cost"`
}

type remoteFileClient interface {
	MkdirAll(dir string) error
	UploadFile(localPath, remotePath string) (int64, error)
	Close() error
}

type remoteFileClientFactory interface {
	New(server StorageServer, user, privateKeyPath string) (remoteFileClient, error)
}

// ArtifactSyncService 把一次训练的产物目录整体推到远端存储服务器
type ArtifactSyncService struct {
	Store          *ArtifactStore
	SSHUser        string
	PrivateKeyPath string

	clientFactory remoteFileClientFactory
}

func NewArtifactSyncService(store *ArtifactStore) *ArtifactSyncService {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = ""
	}
	return &ArtifactSyncService{
		Store:          store,
		SSHUser:        defaultSSHUser,
		PrivateKeyPath: filepath.Join(homeDir, ".ssh", "id_rsa"),
		clientFactory:  sftpClientFactory{},
	}
}

// PushArtifactSet 同步 model_id 对应目录下的全部文件
func (s *ArtifactSyncService) PushArtifactSet(server StorageServer, modelID string) (SyncResult, error) {
	if server.IP == "" {
		return SyncResult{}, ErrSSHServerIPRequired
	}
	if server.Root == "" {
		return SyncResult{}, ErrRemoteRootRequired
	}

	localDir, err := s.Store.RunDir(modelID)
	if err != nil {
		return SyncResult{}, err
	}
	entries, err := os.ReadDir(localDir)
	if err != nil {
		if os.IsNotExist(err) {
			return SyncResult{}, ErrArtifactDirNotFound
		}
		return SyncResult{}, fmt.Errorf("read artifact dir failed: %w", err)
	}

	client, err := s.clientFactory.New(server, s.SSHUser, s.PrivateKeyPath)
	if err != nil {
		return SyncResult{}, err
	}
	defer client.Close()

	remoteDir := path.Join(server.Root, "models", modelID)
	if err := client.MkdirAll(remoteDir); err != nil {
		return SyncResult{}, fmt.Errorf("create remote dir failed: %w", err)
	}

	started := time.Now()
	result := SyncResult{
		ServerKey: server.Key,
		ServerIP:  server.IP,
		ModelID:   modelID,
		RemoteDir: remoteDir,
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		localPath := filepath.Join(localDir, entry.Name())
		written, err := client.UploadFile(localPath, path.Join(remoteDir, entry.Name()))
		if err != nil {
			return SyncResult{}, fmt.Errorf("upload %s failed: %w", entry.Name(), err)
		}
		result.FileCount++
		result.Bytes += written
	}
	result.Cost = time.Since(started)

	serviceLogger().Info("artifact set synced", "server", server.Key,
		"model_id", modelID, "files", result.FileCount, "bytes", result.Bytes)
	return result, nil
}

type sftpClientFactory struct{}

func (sftpClientFactory) New(server StorageServer, user, privateKeyPath string) (remoteFileClient, error) {
	if privateKeyPath == "" {
		return nil, ErrSSHPrivateKeyPathRequired
	}

	keyData, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key failed: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(keyData)
	if err != nil {
		return nil, fmt.Errorf("parse private key failed: %w", err)
	}

	port := server.Port
	if port == 0 {
		port = defaultSSHPort
	}
	if user == "" {
		user = defaultSSHUser
	}

	sshConfig := &ssh.ClientConfig{
		User:            user,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         defaultSSHTimeout,
	}

	addr := net.JoinHostPort(server.IP, strconv.Itoa(port))
	sshConn, err := ssh.Dial("tcp", addr, sshConfig)
	if err != nil {
		return nil, fmt.Errorf("ssh dial %s failed: %w", addr, err)
	}
	sftpConn, err := sftp.NewClient(sshConn)
	if err != nil {
		_ = sshConn.Close()
		return nil, fmt.Errorf("open sftp session failed: %w", err)
	}

	return &sftpRemoteClient{ssh: sshConn, sftp: sftpConn}, nil
}

type sftpRemoteClient struct {
	ssh  *ssh.Client
	sftp *sftp.Client
}

func (c *sftpRemoteClient) MkdirAll(dir string) error {
	return c.sftp.MkdirAll(dir)
}

func (c *sftpRemoteClient) UploadFile(localPath, remotePath string) (int64, error) {
	src, err := os.Open(localPath)
	if err != nil {
		return 0, err
	}
	defer src.Close()

	dst, err := c.sftp.Create(remotePath)
	if err != nil {
		return 0, err
	}
	defer dst.Close()

	return dst.ReadFrom(src)
}

func (c *sftpRemoteClient) Close() error {
	sftpErr := c.sftp.Close()
	sshErr := c.ssh.Close()
	if sftpErr != nil {
		return sftpErr
	}
	return sshErr
}

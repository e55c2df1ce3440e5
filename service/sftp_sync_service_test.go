package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeRemoteFileClientFactory struct {
	client  *fakeRemoteFileClient
	newErr  error
	servers []StorageServer
}

func (f *fakeRemoteFileClientFactory) New(server StorageServer, user, privateKeyPath string) (remoteFileClient, error) {
	if f.newErr != nil {
		return nil, f.newErr
	}
	f.servers = append(f.servers, server)
	return f.client, nil
}

type fakeRemoteFileClient struct {
	remoteFiles map[string][]byte
	dirs        []string
	uploadErr   error
	closed      bool
}

func (f *fakeRemoteFileClient) MkdirAll(dir string) error {
	f.dirs = append(f.dirs, dir)
	return nil
}

func (f *fakeRemoteFileClient) UploadFile(localPath, remotePath string) (int64, error) {
	if f.uploadErr != nil {
		return 0, f.uploadErr
	}
	content, err := os.ReadFile(localPath)
	if err != nil {
		return 0, err
	}
	if f.remoteFiles == nil {
		f.remoteFiles = make(map[string][]byte)
	}
	f.remoteFiles[remotePath] = content
	return int64(len(content)), nil
}

func (f *fakeRemoteFileClient) Close() error {
	f.closed = true
	return nil
}

func TestArtifactSyncServicePushArtifactSet(t *testing.T) {
	store := NewArtifactStore(t.TempDir())
	runDir := filepath.Join(store.Root, "models", "demo", "20250101T000000")
	assert.NoError(t, os.MkdirAll(runDir, 0o755))
	assert.NoError(t, os.WriteFile(filepath.Join(runDir, "model.json"), []byte("{}"), 0o644))
	assert.NoError(t, os.WriteFile(filepath.Join(runDir, "roi.png"), []byte("png-bytes"), 0o644))

	client := &fakeRemoteFileClient{}
	factory := &fakeRemoteFileClientFactory{client: client}
	svc := &ArtifactSyncService{
		Store:          store,
		SSHUser:        "root",
		PrivateKeyPath: "/tmp/id_rsa",
		clientFactory:  factory,
	}

	server := StorageServer{Key: "gpu-1", IP: "10.0.0.3", Port: 22, Root: "/srv/artifacts"}
	result, err := svc.PushArtifactSet(server, "demo/20250101T000000")
	assert.NoError(t, err)
	assert.Equal(t, "gpu-1", result.ServerKey)
	assert.Equal(t, "10.0.0.3", result.ServerIP)
	assert.Equal(t, "/srv/artifacts/models/demo/20250101T000000", result.RemoteDir)
	assert.Equal(t, 2, result.FileCount)
	assert.EqualValues(t, len("{}")+len("png-bytes"), result.Bytes)

	assert.Equal(t, []string{"/srv/artifacts/models/demo/20250101T000000"}, client.dirs)
	assert.Equal(t, []byte("{}"),
		client.remoteFiles["/srv/artifacts/models/demo/20250101T000000/model.json"])
	assert.True(t, client.closed)
	assert.Len(t, factory.servers, 1)
}

func TestArtifactSyncServicePushArtifactSetValidation(t *testing.T) {
	store := NewArtifactStore(t.TempDir())
	svc := &ArtifactSyncService{
		Store:         store,
		clientFactory: &fakeRemoteFileClientFactory{client: &fakeRemoteFileClient{}},
	}

	_, err := svc.PushArtifactSet(StorageServer{Root: "/srv"}, "demo/20250101T000000")
	assert.ErrorIs(t, err, ErrSSHServerIPRequired)

	_, err = svc.PushArtifactSet(StorageServer{IP: "10.0.0.3"}, "demo/20250101T000000")
	assert.ErrorIs(t, err, ErrRemoteRootRequired)

	_, err = svc.PushArtifactSet(StorageServer{IP: "10.0.0.3", Root: "/srv"}, "bad-id")
	assert.ErrorIs(t, err, ErrModelIDMalformed)

	_, err = svc.PushArtifactSet(StorageServer{IP: "10.0.0.3", Root: "/srv"}, "demo/20990101T000000")
	assert.ErrorIs(t, err, ErrArtifactDirNotFound)
}

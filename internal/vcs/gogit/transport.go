package gogit

import (
	"sync"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/transport/client"
	"github.com/go-git/go-git/v5/plumbing/transport/server"
)

const (
	fileProtocolConstant       = "file"
	filesystemRootPathConstant = "/"
)

var installFileTransportOnce sync.Once

// InstallInProcessFileTransport serves file:// and bare-path remotes from the local
// filesystem inside the process, so local remotes work without git-upload-pack or
// git-receive-pack on PATH. The registration is global to go-git and happens once.
func InstallInProcessFileTransport() {
	installFileTransportOnce.Do(func() {
		loader := server.NewFilesystemLoader(osfs.New(filesystemRootPathConstant))
		client.InstallProtocol(fileProtocolConstant, server.NewServer(loader))
	})
}

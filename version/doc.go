// Package version carries build metadata for the provisioner client.
//
// Version and commit are set at link time:
//
//	go build -ldflags "-X github.com/kbukum/provisioner/version.Version=1.2.0"
package version

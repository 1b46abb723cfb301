// Package provisionertest runs an in-memory provisioning service for tests.
//
//	srv := provisionertest.New(t, provisionertest.WithCredentials("admin", "secret"))
//	c, err := provisioner.New(srv.Getter())
//
// The server keeps configs, systems, tarballs, users and keys in memory,
// records every request it sees, and can be told to answer a route with a
// fixed status through Fail.
package provisionertest

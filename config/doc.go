// Package config describes how a client reaches the provisioning service.
//
// A Connection holds host, port, scheme, proxy, Basic-auth credentials and
// TLS material. Anything implementing Getter can stand in for it; a
// *Connection, a Map and a *viper.Viper all do.
//
// # Loading
//
//	v, err := config.Load(config.WithConfigFile("provisioner.yml"))
//	conn, err := config.LoadConnection()
//
// Environment variables override file values using the PROVISIONER_ prefix
// with underscore-separated paths (e.g. PROVISIONER_AUTH_USERNAME).
package config

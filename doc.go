// Package provisioner is a client for a provisioning service that manages
// environment configuration, deployable systems and users.
//
// A Client bundles three resource facades that share one
// dispatcher.Dispatcher:
//
//	c, err := provisioner.New(config.Map{
//	    "host":          "provisioner.internal",
//	    "port":          9000,
//	    "auth.username": "deploy",
//	    "auth.password": os.Getenv("PROVISIONER_PASSWORD"),
//	})
//	if err != nil {
//	    return err
//	}
//	systems, err := c.Systems.List(ctx)
//
// Facades never touch the network themselves. Every call goes through the
// dispatcher, so failures are *dispatcher.TransportError or
// *dispatcher.ProtocolError values and can be inspected with
// dispatcher.StatusOf or dispatcher.IsNotFound.
//
// Connection settings can also come from files and the environment with
// config.Load; the returned *viper.Viper is a valid source for New.
package provisioner

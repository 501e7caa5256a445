// Package bootstrap runs a service through its lifecycle: start the
// registered components, run configure callbacks and hooks, print the
// startup summary, wait for a shutdown signal, then stop everything in
// reverse order.
//
//	app, err := bootstrap.NewApp(&cfg)
//	_ = app.RegisterComponent(peersProvider)
//	_ = app.RegisterComponent(server.NewComponent(srv))
//	if err := app.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package bootstrap

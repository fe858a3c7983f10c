// Package manager implements the client for the asynchronous admin
// protocol: named actions out, correlated replies and unsolicited
// events back, all on one shared TCP connection.
//
// # Correlation model
//
// A dedicated reader goroutine frames and parses every incoming unit.
// Event units are dispatched to the handler registry immediately;
// units whose ActionID matches a pending request are routed to that
// request's completion channel. One connection therefore supports
// concurrent outstanding requests, each with its own timeout, while
// events keep flowing.
//
// List replies (EventList: start ... EventList: Complete) are assembled
// by the reader: the interior units are still dispatched as events, and
// the terminal unit is returned to the caller with Events holding the
// interior sequence in order.
//
// # Usage
//
//	c := manager.NewClient(manager.Config{
//		Address:  "pbx:5038",
//		Username: "admin",
//		Secret:   "secret",
//	})
//	c.Registry().Register("Hangup", func(name string, u *wire.Unit, conn dispatch.Identity) {
//		fmt.Println("hangup on", u.Get("Channel"))
//	})
//	if err := c.Connect(ctx); err != nil { ... }
//	if err := c.Login(ctx); err != nil { ... }
//	defer c.Close()
//
//	reply, err := c.Send(ctx, "Ping", nil)
//
// Typed actions cover the common operations; everything else goes
// through the generic Send primitive.
package manager

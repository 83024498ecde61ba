// Package flow embeds a remotely hosted identity-verification flow into a
// host application and coordinates its lifecycle from the host side.
//
// A Flow is constructed for one verification session, initialized once with
// display options (modal overlay or inline embed), and then driven by
// lifecycle signals arriving from the remote context: ready reveals the
// surface and installs the capability proxy, finish and close fire registered
// callbacks and, in modal mode, close the surface automatically.
//
// The flow core performs no network I/O and touches no concrete rendering
// tree; the host injects a mount.Adapter, a signal.Channel, and optionally a
// proxy.Installer.
//
// Example:
//
//	fl, err := flow.New("sess_9f2c", flow.ServiceIndividual,
//		flow.WithAdapter(adapter),
//		flow.WithChannel(channel),
//	)
//	if err != nil {
//		return err
//	}
//	fl.On(signal.Finish, func() { log.Println("verified") })
//	if err := fl.Init(flow.DisplayOptions{Mode: flow.ModeModal, Language: "en"}); err != nil {
//		return err
//	}
//	fl.OpenSession()
package flow

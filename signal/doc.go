// Package signal carries lifecycle signals from the remote verification flow
// back to the host-side controller.
//
// The remote context emits untyped JSON payloads; the only contract is a
// "type" discriminator field. Payloads without one are dropped, everything
// else is forwarded as-is. A Channel delivers inbound payloads in arrival
// order, and the Router demultiplexes them to the lifecycle controller and to
// user-registered callbacks.
//
// Two channel implementations ship with the SDK: MemoryChannel for tests and
// emulation, and WSChannel bridging a live page over a WebSocket connection.
package signal

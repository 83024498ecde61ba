// Package mount abstracts the rendering surfaces the verification flow is
// embedded into. The controller never touches a concrete visual tree; it works
// against the Surface, Host, and Adapter capabilities defined here, and the
// host environment supplies the implementation (a DOM bridge, a webview, or
// the in-memory implementation used in tests).
package mount

// Package server provides HTTP routing, middleware, the library proxy and the browser authorization flow.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [ChiRouter] implements it on go-chi with request IDs, real client IPs and panic recovery installed.
// [Middleware] is applied in the order it is added; all middleware must be added before any route.
//
// # Library Proxy
//
// [ProxyHandler] exposes two read endpoints that forward to Apple Music with a server-held developer token:
//
//   - GET /api/songs requires the Music-User-Token header and forwards limit and offset.
//   - GET /api/recommendations forwards ids, limit and offset along with the user token, if any.
//
// Vendor bodies are returned verbatim as JSON. Any transport or vendor failure becomes a plain 500.
//
// # Authorization Handler
//
// [AuthorizeHandler] serves a MusicKit JS page at /authorize that asks the user to sign in and posts
// the resulting user token to /callback. The callback validates the state parameter, is processed only
// once, and delivers the token through a channel.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server

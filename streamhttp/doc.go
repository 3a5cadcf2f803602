// Package streamhttp turns a long-running computation into an HTTP
// response that never looks dead to clients or intermediate proxies.
//
// The protocol tension it resolves: HTTP fixes the status code at the
// first body byte, yet a handler that stays silent for the whole
// computation will trip idle-timeout disconnects. The Handler defers that
// choice as long as it can. A computation finishing within one keep-alive
// period gets an ordinary buffered response with the correct status; once
// the first keep-alive tick fires, the response is committed as a 200
// stream and newline filler bytes pace the connection until the result is
// ready. A failure after commitment can no longer change the status, so it
// is surfaced the only way left: the stream is truncated and the
// connection dropped. Clients must treat an incomplete streamed body as a
// server-side failure.
//
// Result values are encoded with hexjson, so byte-sequence fields render
// as short hex fingerprints rather than base64.
//
// Authentication is a collaborator, not a concern of this package: wrap
// the Handler with auth.RequireBearer (or any middleware that calls
// auth.WithUser) and the identity is available to the computation via
// auth.UserFromContext.
package streamhttp

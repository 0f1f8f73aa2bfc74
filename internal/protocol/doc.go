// Package protocol defines the wire format between the kiln CLI and the
// daemon.
//
// Messages are newline-delimited JSON envelopes carrying a command name and
// an optional payload. Each connection holds exactly one request-response
// exchange. Payloads are decoded lazily so the dispatcher can route on the
// command before committing to a payload shape.
package protocol

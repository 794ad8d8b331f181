// Package api serves the HTTP surface of the daemon: agent listing and
// wallet eligibility lookups, the registered action catalog, and a generic
// action execution endpoint. Chain errors are mapped onto HTTP status codes
// and, when an alert channel is configured, forwarded asynchronously.
package api

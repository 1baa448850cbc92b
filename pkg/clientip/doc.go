// Package clientip extracts the originating client IP from HTTP requests,
// honoring the usual reverse-proxy headers before falling back to the TCP
// peer address. The result feeds audit events and trusted-device metadata.
package clientip

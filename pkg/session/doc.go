// Package session keeps the short-lived mapping from an opaque session id to
// one uploaded report's extracted text and metadata. Sessions expire after a
// fixed timeout and are removed by a background sweeper or lazily on lookup.
package session

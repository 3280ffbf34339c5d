// Package multipart implements an incremental scanner for MIME
// multipart streams as they appear on the wire: parts introduced by a
// dash-prefixed boundary delimiter line, each with its own header
// block, the whole stream closed by the delimiter with trailing
// dashes.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc2046#section-5.1
//
// The scanner is push based. Callers feed it chunks of any size and it
// reports structure through callbacks, holding no part data of its own
// beyond a small lookbehind for delimiter candidates that span chunks.
// A position can be captured with Snapshot and rewound with Restore,
// so a chunk whose events were not fully consumed downstream can be
// fed again later.
package multipart

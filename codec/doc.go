// Package codec encodes and decodes streaming MIME multipart message
// bodies, as used for event and directive exchange over a multiplexed
// HTTP/2 connection.
//
// Both directions are push based and perform no I/O or buffering of
// their own. The transport drives the RequestEncoder by handing it
// output buffers to fill, and drives the ResponseDecoder by handing it
// received chunks; the application sits behind the RequestSource and
// ResponseSink interfaces. Backpressure flows through the PAUSE
// statuses: a paused call left no observable state change and may be
// retried with the same arguments, while a partial result is always
// reported as CONTINUE with the byte count instead.
//
// Everything here is single threaded. One encoder or decoder serves
// one request or response; instances are independent, so concurrent
// streams each get their own.
package codec

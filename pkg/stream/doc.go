// Package stream implements the two sides of a bounded hand-off: a Producer
// that drains a source sequence into a queue, and a Consumer that drains the
// queue into a sink.
//
// End of stream is carried in-band as a tagged Item, so any value of T
// (including its zero value) is a valid payload. SentinelProducer and
// SentinelConsumer implement the older poison-pill protocol for comparable
// types, where one reserved value marks the end.
//
// With several producers sharing one queue, a Terminator counts the
// producers still running; the last one to finish emits one EndOfStream per
// consumer.
package stream

// Package audit provides the asynchronous audit event dispatcher and its
// sinks.
//
// The [Dispatcher] owns a buffered channel and one worker goroutine. With
// DropIfFull set, Emit never blocks: events that do not fit are counted in
// Dropped. Otherwise Emit waits for buffer space or context cancellation.
//
// Sinks: [NoOpSink], [ChannelSink], [JSONWriterSink] and [ZapSink].
package audit

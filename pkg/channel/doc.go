/*
Package channel implements the ordered conduit a running module uses to talk to its host.

A Channel is a FIFO queue of (topic, payload) messages. The module side only sees a
Sender (see Channel.Endpoint); the host drains messages with Receive. The queue is
unbounded by default; with a Bounded policy, Send suspends the module while the host
is behind. Closing the channel rejects further sends with ErrChannelClosed while
keeping already queued messages receivable, so nothing a module sent before shutdown
is lost.
*/
package channel

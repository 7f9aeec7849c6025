package ingest

import "time"

// Settings are the batching and stop thresholds of the consume loop.
// They are fixed for the lifetime of an Orchestrator.
type Settings struct {
	BatchSize     int           // valid events per flush
	MaxMessages   int           // stop after this many received messages
	MaxEmptyPolls int           // stop after this many consecutive empty polls
	PollTimeout   time.Duration // how long one poll may block
}

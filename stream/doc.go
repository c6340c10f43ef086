// SPDX-License-Identifier: EPL-2.0

// Package stream implements the realtime streaming engine: a bounded byte
// FIFO bridged by a dedicated I/O worker, decoupling blocking disk I/O from
// the hard-deadline audio callback.
//
// Reader plays a soundfile to signal vectors; Writer captures signal
// vectors to a soundfile. Both share one protocol: a request word (nothing,
// open, busy, close, quit) owned by the audio side except for busy, a mutex,
// and two condition variables. The worker waits on "request", the audio side
// waits on "answer"; all disk I/O runs with the mutex released against a
// descriptor snapshot, and the worker re-checks the request word after every
// blocking call so a newer request can abandon the job in progress.
//
// The FIFO is a classic single-producer/single-consumer ring with head ==
// tail meaning empty; one byte of capacity stays reserved so a full buffer
// is never ambiguous with an empty one. In steady state the audio thread
// never blocks; it waits only when the FIFO is starved (playback) or
// saturated (capture), which is reported but not fatal.
package stream

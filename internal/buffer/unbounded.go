// Package buffer provides the channel plumbing between event producers
// and the orchestrator loop.
package buffer

import "log"

// Unbounded returns a linked pair of channels backed by a growable
// queue, so producers never block on a slow consumer. Once the queue
// holds hardLimit items the oldest one is evicted to make room; a UI
// that stalls loses the oldest scrollback events, not the newest.
// Closing the in channel flushes whatever is queued and then closes out.
func Unbounded[T any](initialCap, hardLimit int) (chan<- T, <-chan T) {
	in := make(chan T)
	out := make(chan T)

	go func() {
		defer close(out)

		queue := make([]T, 0, initialCap)
		head := 0
		dropped := 0

		for {
			var front T
			var send chan T
			if head < len(queue) {
				front = queue[head]
				send = out
			}

			select {
			case v, ok := <-in:
				if !ok {
					for _, item := range queue[head:] {
						out <- item
					}
					if dropped > 0 {
						log.Printf("[buffer] dropped %d events this session", dropped)
					}
					return
				}
				if len(queue)-head >= hardLimit {
					if dropped == 0 {
						log.Printf("[buffer] queue limit %d reached, evicting oldest events", hardLimit)
					}
					dropped++
					head++
				}
				queue = append(queue, v)
				// Reclaim the consumed prefix once it dominates the
				// backing array.
				if head > len(queue)/2 && head > initialCap {
					queue = append(queue[:0], queue[head:]...)
					head = 0
				}

			case send <- front:
				head++
				if head == len(queue) {
					queue = queue[:0]
					head = 0
				}
			}
		}
	}()

	return in, out
}

/*
Package resilience provides a circuit breaker for calls to remote wiki sites.

When a booru mirror stops answering (timeouts, connection errors) the
breaker opens and further page requests fail fast with ErrCircuitOpen until
the timeout elapses and a probe succeeds.

# Usage

	breaker := resilience.New("wiki-site", resilience.Settings{
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, client.ErrChallenge)
		},
	})

	resp, err := resilience.Do(breaker, func() (*client.Response, error) {
		return c.do(ctx, url)
	})

# States

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                       [failure]
	                                           v
	                                          Open
*/
package resilience

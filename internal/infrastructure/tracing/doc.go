/*
Package tracing provides lightweight request and fetch tracing.

# Overview

Spans are collected on a buffered channel and written to the structured log
by a single collector goroutine. Trace IDs propagate through context and the
X-Trace-ID / X-Span-ID headers, so a front end can correlate an API call with
the fetch it started.

# Usage

	tracer := tracing.New("danwiki", logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))

	span, ctx := tracer.StartSpan(ctx, "fetch")
	defer func() {
		span.Finish()
		tracer.Submit(span)
	}()
	span.SetTag("tag", "cat_ears")

A nil *Tracer is valid: spans are still created but never collected.
*/
package tracing

// Package ws streams fetch progress to browser front ends over WebSocket.
//
// Every connected client receives every fetch event. Clients may also send
// messages:
//
//	{"type": "ping"}                    -> {"type": "pong"}
//	{"type": "fetch", "tag": "cat_ears"} -> {"type": "accepted", ...} or {"type": "error", ...}
//
// Events arrive as {"type": "fetch_event", "event": {...}}.
package ws

// Package websocket pushes live Kalaha game state to browser clients.
//
// A central Hub owns every connection. Clients attach to one session through
// the ?session= query parameter handled by the API server, and only receive
// messages for that session. Registration, broadcasts and per-client replies
// all pass through channels read by the Run goroutine, so the session map
// has a single owner.
//
// Message Protocol:
//
// Outgoing messages are JSON objects:
//
//	{"session_id":"ab12","event":"state_update","game_state":{...}}
//	{"session_id":"ab12","event":"error","data":{"error":"...","code":"empty_pit"}}
//
// Clients may send actions, which are handed to the ActionHandler installed
// by the API server:
//
//	{"action":"move","pit":3}
//	{"action":"reset"}
//	{"action":"reset","starting_stones":4}
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	go hub.Run(ctx)
//	hub.SetActionHandler(handler)
//	hub.ServeWS(w, r, sessionID)
package websocket

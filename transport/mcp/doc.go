// Package mcp exposes the Kalaha game to AI agents over the Model Context
// Protocol.
//
// The Client is a thin proxy: every tool turns into a call against the REST
// API and the response is rendered as text, board included. The same server
// can be served over stdio or mounted on the HTTP server at /mcp.
//
// Tools:
//   - create_session, list_sessions, get_session
//   - game_state: board, stores, legal pits and whose turn it is
//   - move: sow one pit (1-6) for the player to move
//   - bulk_move: several pits in order, stopping at the first rejection
//   - reset_game: start over, optionally with another stone count
//   - set_player_names
//   - move_history: paginated history
//   - list_configs: available rulesets
//   - game_instructions: the rules in prose
//
// Rejected moves come back as tool errors carrying the API error code
// (invalid_pit, empty_pit, game_over).
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp

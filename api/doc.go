// Package api provides the HTTP REST API for the Kalaha game server.
//
// Endpoints:
//
// Sessions:
//   - POST   /api/sessions              create ({config_id, player_a, player_b}, all optional)
//   - GET    /api/sessions              list (?sort=created|accessed&order=asc|desc&limit=n&config=id)
//   - GET    /api/sessions/{id}         session info with state and ruleset
//   - DELETE /api/sessions/{id}         delete
//
// Game:
//   - GET  /api/sessions/{id}/state     game state JSON
//   - GET  /api/sessions/{id}/board     text rendering of the board
//   - POST /api/sessions/{id}/move      {"pit": 3, "reset": false}
//   - POST /api/sessions/{id}/bulk-move {"pits": [3, 1, 6], "reset": false}
//   - POST /api/sessions/{id}/reset     {"starting_stones": 4} (body optional)
//   - PUT  /api/sessions/{id}/players   {"player_a": "Ann", "player_b": "Ben"}
//   - GET  /api/sessions/{id}/history   ?page=1&limit=20&order=desc
//
// Rulesets:
//   - GET  /api/configs
//   - GET  /api/configs/{name}
//   - POST /api/configs                 a GameConfig plus optional "format": "json"|"yaml"
//
// Other:
//   - GET /health, GET /api/health
//   - GET /ws?session={id}              websocket upgrade
//
// Pits are numbered 1 to 6 from the mover's left.
//
// Errors:
//
// Failures return a JSON body with a machine-readable code:
//
//	{"error": "session ab12: move rejected for player A pit 3: pit is empty", "code": "empty_pit"}
//
// invalid_pit and invalid_config map to 400, empty_pit and game_over to 409,
// not_found to 404 and anything unexpected to 500.
//
// Every state change is broadcast to the session's websocket subscribers.
package api

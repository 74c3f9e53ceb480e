// Package session provides session management for the Kalaha game server.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Unique session ID generation
//   - Session persistence to JSON files or SQLite
//   - Session cleanup and expiration
//
// Core Types:
//
// Manager is the main session manager that handles all session operations.
// Each service.Session owns its own engine instance plus metadata like
// creation time and last access time. SessionPersistence has two
// implementations: FilePersistence writes one JSON document per session and
// SQLitePersistence keeps a sessions table.
//
// Session Identifiers:
//
// Sessions use 4-character hex IDs generated from crypto/rand. Lookups are
// case-insensitive.
//
// Concurrency:
//
// The manager guards its map with a RWMutex. It does not serialize access to
// a session's engine; the service layer does that.
//
// Usage:
//
//	manager := session.NewManager(logger)
//
//	sess, err := manager.Create("", "classic", config)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sess, err = manager.Get(sess.ID)
//	sessions := manager.List()
package session

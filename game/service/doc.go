// Package service provides the business logic layer for the Kalaha game server.
//
// The service package implements:
//   - Multi-session game management
//   - Configuration management and loading
//   - Move processing and event generation
//   - Move history tracking
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager manages ruleset loading and validation.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the game engine. Engines are not safe for concurrent use, so every
// operation runs under the service lock. States handed back to callers are
// snapshots and never alias the live engine state.
//
// Usage:
//
//	sessionMgr := session.NewManager(logger)
//	configMgr, _ := config.NewManager("configs")
//	gameService := service.NewGameService(sessionMgr, configMgr, service.WithLogger(logger))
//
//	info, err := gameService.CreateSession(ctx, "classic", service.PlayerNames{PlayerA: "Ann"})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := gameService.Move(ctx, info.ID, 3, false)
package service

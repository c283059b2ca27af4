// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the room and listing handlers.
// These provide more specific reasons for closure than standard codes.
const (
	BadSubprotocolError  = 3000 // Client connected with an unsupported subprotocol.
	InvalidSessionError  = 3001 // Session cookie was invalid and could not be replaced.
	InvalidRoomCodeError = 3003 // Room code in the WS URL is malformed.
)

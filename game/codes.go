/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package game holds the authoritative state machine, player sessions,
// and the WebSocket hub that fans state out to every connected client.
package game

import "fmt"

// Code is a wire-level error code sent inside error messages.
type Code string

const (
	CodeNameTaken          Code = "NAME_TAKEN"
	CodeNameInvalid        Code = "NAME_INVALID"
	CodeGameNotStarted     Code = "GAME_NOT_STARTED"
	CodeGameAlreadyStarted Code = "GAME_ALREADY_STARTED"
	CodeGameEnded          Code = "GAME_ENDED"
	CodeGameFull           Code = "GAME_FULL"
	CodeNotAdmin           Code = "NOT_ADMIN"
	CodeAdminExists        Code = "ADMIN_EXISTS"
	CodeRoundExpired       Code = "ROUND_EXPIRED"
	CodeAlreadySubmitted   Code = "ALREADY_SUBMITTED"
	CodeNotInGame          Code = "NOT_IN_GAME"
	CodeInvalidAction      Code = "INVALID_ACTION"
	CodeMAUnavailable      Code = "MA_UNAVAILABLE"
	CodeUnsupportedPlat    Code = "UNSUPPORTED_PLATFORM"
)

// Error pairs a wire code with a human-readable message. Handlers return
// it internally; the hub translates it to an error frame for the
// originator only.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

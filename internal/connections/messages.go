package connections

import (
	"errors"

	"ledger/internal/core"
)

const (
	MsgEnterUserID      = "Please enter a user ID"
	MsgOwnID            = "You cannot use your own ID"
	MsgUserNotFound     = "User not found"
	MsgAlreadyConnected = "Already connected to this user"
	MsgConnected        = "Connection completed!"
	MsgDisconnected     = "Disconnection completed!"
	MsgDisconnectFailed = "Failed to disconnect"
	MsgGenericError     = "An error occurred"
)

// AddMessage is the user-facing text for the result of Add.
func AddMessage(outcome AddOutcome, err error) string {
	switch {
	case err == nil && outcome == OutcomeAlreadyConnected:
		return MsgAlreadyConnected
	case err == nil:
		return MsgConnected
	case errors.Is(err, ErrEmptyTarget):
		return MsgEnterUserID
	case errors.Is(err, ErrSelfTarget):
		return MsgOwnID
	case errors.Is(err, core.ErrTargetNotFound):
		return MsgUserNotFound
	default:
		return MsgGenericError
	}
}

// RemoveMessage is the user-facing text for the result of Remove.
func RemoveMessage(err error) string {
	switch {
	case err == nil:
		return MsgDisconnected
	case errors.Is(err, ErrEmptyTarget):
		return MsgEnterUserID
	default:
		return MsgDisconnectFailed
	}
}

package handlers

import "errors"

var (
	errNotOwner       = errors.New("requester is not the resource owner")
	errNotParticipant = errors.New("requester is not a participant of this claim")
)

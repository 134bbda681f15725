package auction

import "errors"

// Registration errors
var (
	ErrNameTaken      = errors.New("name already taken")
	ErrTableFull      = errors.New("table is full")
	ErrInvalidName    = errors.New("invalid name")
	ErrDeliveryFailed = errors.New("delivery to new player failed")
)

// Bid errors. None of them change the auction state.
var (
	ErrMalformedBid  = errors.New("malformed bid")
	ErrTooLow        = errors.New("bid too low")
	ErrNotYourTurn   = errors.New("not your turn")
	ErrRoundClosed   = errors.New("bidding is not open")
	ErrUnknownPlayer = errors.New("unknown player")
)

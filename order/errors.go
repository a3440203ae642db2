package order

import "errors"

var (
	ErrPriceOutOfBounds  = errors.New("price out of market bounds")
	ErrSlotOccupied      = errors.New("slot already has active or pending order")
	ErrInsufficientCash  = errors.New("insufficient available cash")
	ErrInsufficientUnits = errors.New("insufficient available units")
	ErrUnknownMarket     = errors.New("unknown market")
)

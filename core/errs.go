package core

import "errors"

var (
	ErrUnsupportedExchange     = errors.New("unsupported exchange")
	ErrInsufficientCandles     = errors.New("insufficient candle data")
	ErrInvalidQuoteAmount      = errors.New("invalid quote amount")
	ErrInvalidQuantity         = errors.New("invalid quantity")
	ErrStrategyNotFound        = errors.New("strategy not found")
	ErrPositionNotFound        = errors.New("position not found")
	ErrPositionAlreadyComplete = errors.New("position already closed")
)

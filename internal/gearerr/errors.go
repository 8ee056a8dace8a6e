// Package gearerr defines the sentinel error values the engine's error
// taxonomy is built from. Components wrap these with fmt.Errorf("%w: ...")
// so callers can distinguish kinds with errors.Is.
package gearerr

import "errors"

var (
	// ErrWorkerNotReady is returned when optimization is requested before
	// the price/requirement stores have completed their one-shot init.
	ErrWorkerNotReady = errors.New("worker not ready")

	// ErrInvalidSlot is returned by filter helpers given a slot outside the
	// eleven recognized slots.
	ErrInvalidSlot = errors.New("invalid slot")

	// ErrInvalidInput is returned for inconsistent constraints, e.g.
	// enforce_skill_requirements=true without player_skills.
	ErrInvalidInput = errors.New("invalid input")

	// ErrPriceFetchFailed marks a failed price-source fetch. Non-fatal: the
	// store is left cleared and optimization continues with unknown prices.
	ErrPriceFetchFailed = errors.New("price fetch failed")

	// ErrCalculatorFailure marks a failure inside the external DPS
	// calculator. Fatal: the optimization run aborts.
	ErrCalculatorFailure = errors.New("calculator failure")
)

package amm

import "errors"

var (
	ErrSameMint         = errors.New("base and quote mints must differ")
	ErrInvalidSwapFee   = errors.New("swap fee out of range")
	ErrUnauthorized     = errors.New("caller is not the pool's permissioned caller")
	ErrPositionExists   = errors.New("position already exists")
	ErrPositionNotFound = errors.New("position not found")

	ErrZeroInput                   = errors.New("input amount must be greater than zero")
	ErrEmptyPool                   = errors.New("pool has no liquidity")
	ErrZeroOutput                  = errors.New("swap output is zero")
	ErrSlippage                    = errors.New("swap output below minimum")
	ErrSwapInvariant               = errors.New("swap decreased the constant product")
	ErrZeroLiquidity               = errors.New("liquidity amounts must be greater than zero")
	ErrAddLiquidityCalculation     = errors.New("deposit exceeds both maximum amounts at current ratio")
	ErrInsufficientLiquidityMinted = errors.New("insufficient liquidity minted")
	ErrInsufficientLiquidityBurned = errors.New("insufficient liquidity burned")
	ErrInvalidBps                  = errors.New("ownership bps must be in (0, 10000]")
	ErrNoOwnership                 = errors.New("position has no ownership")
	ErrOwnershipMismatch           = errors.New("position ownership does not sum to total ownership")

	ErrClockMovedBackwards = errors.New("clock moved backwards")
	ErrInvalidAggregate    = errors.New("invalid ltwap aggregate")
)

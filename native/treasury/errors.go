package treasury

import "errors"

var (
	ErrUnauthorized     = errors.New("treasury: caller is not the admin")
	ErrNotDepositor     = errors.New("treasury: caller is not a trusted depositor")
	ErrUntrustedAsset   = errors.New("treasury: asset not registered")
	ErrDepositorExists  = errors.New("treasury: depositor already trusted")
	ErrDepositorUnknown = errors.New("treasury: depositor not trusted")
	ErrProtectedAsset   = errors.New("treasury: asset cannot be recovered")
	ErrZeroAddress      = errors.New("treasury: zero address")

	errInvalidAmount      = errors.New("treasury: amount must be positive")
	errInvalidAsset       = errors.New("treasury: asset symbol required")
	errNilState           = errors.New("treasury: state not configured")
	errNotWired           = errors.New("treasury: collaborators not configured")
	ErrNotInitialized     = errors.New("treasury: not initialized")
	ErrAlreadyInitialized = errors.New("treasury: already initialized")
)

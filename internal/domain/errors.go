package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a quiz session does not exist or was discarded.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrInvalidTransition is returned when a session operation is called out of order.
	ErrInvalidTransition = errors.New("invalid session transition")
	// ErrInvalidCatalog indicates the country catalog failed validation at load time.
	ErrInvalidCatalog = errors.New("invalid country catalog")
	// ErrCatalogUnavailable indicates the catalog could not be loaded from its source.
	ErrCatalogUnavailable = errors.New("country catalog unavailable")
	// ErrScoreNotFound is returned when a user has no recorded score.
	ErrScoreNotFound = errors.New("score not found")
	// ErrUnauthenticated is returned when an identity token is present but invalid.
	ErrUnauthenticated = errors.New("invalid identity token")
)

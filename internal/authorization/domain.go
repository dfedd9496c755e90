package authorization

import (
	"context"
	"errors"
)

type Service interface {
	// Authorize checks whether actor may perform action on object within
	// the given organization. Actors are "user:<id>" or "system".
	Authorize(ctx context.Context, actor string, orgID string, object string, action string) error
}

var (
	ErrInvalidActor        = errors.New("invalid_actor")
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidObject       = errors.New("invalid_object")
	ErrInvalidAction       = errors.New("invalid_action")
	ErrForbidden           = errors.New("forbidden")
)

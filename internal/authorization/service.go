package authorization

import (
	"context"
	"errors"
	"fmt"

	authdomain "github.com/smallbiznis/pulse/internal/auth/domain"
	"github.com/smallbiznis/pulse/internal/errkind"
)

type Service interface {
	Authorize(ctx context.Context, user authdomain.User, object string, action string) error
}

var (
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
	ErrForbidden     = fmt.Errorf("%w: forbidden", errkind.ErrUnauthorized)
)

// Package sessions holds in-flight call state keyed by the provider call id.
package sessions

import (
	"context"
	"errors"

	"github.com/yoockh/labourline/internal/models"
	"github.com/yoockh/labourline/internal/utils"
)

// Store is safe for concurrent use. Get and Update hand out copies; a session is
// only changed through Update, Put or Remove.
//
// A miss returns an error for which IsNotFound reports true.
type Store interface {
	// Create starts a session for callID. When one already exists it is left
	// as is and the error satisfies IsExists.
	Create(ctx context.Context, callID, callerAddress string) (*models.CallSession, error)
	Get(ctx context.Context, callID string) (*models.CallSession, error)
	// Update applies fn to the stored session and saves the result. When fn
	// returns an error nothing is saved and that error is returned.
	Update(ctx context.Context, callID string, fn func(*models.CallSession) error) (*models.CallSession, error)
	// Put stores s as-is, replacing any existing session with the same id.
	Put(ctx context.Context, s *models.CallSession) error
	Remove(ctx context.Context, callID string) error
}

// ErrExists is returned by Create for a call id that already has a session.
var ErrExists = errors.New("session already exists")

func IsExists(err error) bool {
	return errors.Is(err, ErrExists)
}

func IsNotFound(err error) bool {
	return errors.Is(err, utils.ErrNotFound)
}

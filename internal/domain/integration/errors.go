package integration

import (
	"errors"

	"github.com/wms/backend/internal/domain/shared"
)

var (
	// Platform errors
	ErrPlatformNotConfigured   = errors.New("integration: platform not configured")
	ErrPlatformUnavailable     = errors.New("integration: platform temporarily unavailable")
	ErrPlatformRequestFailed   = errors.New("integration: platform request failed")
	ErrPlatformInvalidResponse = errors.New("integration: invalid platform response")
	ErrPlatformAuthFailed      = errors.New("integration: platform authentication failed")
	ErrPlatformNotFound        = errors.New("integration: platform resource not found")
	ErrPlatformRateLimited     = errors.New("integration: platform rate limited")
	ErrPlatformRejected        = errors.New("integration: platform rejected the request")

	// ErrSyncInProgress is returned by a SyncLocker when the named lock is held
	ErrSyncInProgress = errors.New("integration: sync already running")
)

// ToDomainError translates adapter errors into the local error taxonomy.
// Domain errors pass through unchanged.
func ToDomainError(service string, err error) error {
	if err == nil {
		return nil
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, ErrSyncInProgress) {
		return shared.NewDomainError(shared.CodeInvalidState, "Sync already running")
	}
	if errors.Is(err, ErrPlatformNotConfigured) {
		return shared.NewDomainError(shared.CodeExternalService, service+" integration not configured")
	}
	if errors.Is(err, ErrPlatformRejected) {
		return shared.NewDomainError(shared.CodeExternalService, service+" rejected the request: "+err.Error()).
			WithDetail("service", service)
	}
	return shared.NewDomainError(shared.CodeExternalService, service+" request failed").
		WithDetail("service", service).
		WithDetail("reason", err.Error())
}

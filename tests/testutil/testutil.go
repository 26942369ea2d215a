// Package testutil holds fixtures, fakes of the integration ports and
// assertions on the API envelope shared by the unit and integration suites.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/wms/backend/internal/domain/shared/valueobject"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var fixtureNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// NewTestUUID derives a stable UUID from seed
func NewTestUUID(seed string) uuid.UUID {
	return uuid.NewSHA1(fixtureNamespace, []byte(seed))
}

// TestUserID is the acting user of service-level tests
func TestUserID() uuid.UUID {
	return NewTestUUID("test-user")
}

// ContextWithTimeout returns a context cancelled when the test ends
func ContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// SydneyAddress is a complete domestic address Sendle accepts
func SydneyAddress() valueobject.Address {
	return valueobject.Address{
		Name:     "Jane Citizen",
		Email:    "jane@example.com",
		Line1:    "1 George St",
		City:     "Sydney",
		State:    "NSW",
		Postcode: "2000",
		Country:  "AU",
	}
}

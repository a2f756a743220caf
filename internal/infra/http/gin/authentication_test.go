package ginserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	gin "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	reservationapp "staybook/internal/app/handlers/reservation"
	"staybook/internal/app/queries"
	"staybook/internal/infra/storage/memory"
)

func TestStaticTokenResolver(t *testing.T) {
	resolver := NewStaticTokenResolver("tok-guest:guest-1,tok-admin:admin-1:admin|support, ,broken")

	id, roles, err := resolver.Resolve(context.Background(), "tok-guest")
	require.NoError(t, err)
	assert.Equal(t, "guest-1", id)
	assert.Empty(t, roles)

	id, roles, err = resolver.Resolve(context.Background(), "tok-admin")
	require.NoError(t, err)
	assert.Equal(t, "admin-1", id)
	assert.Equal(t, []string{"admin", "support"}, roles)

	_, _, err = resolver.Resolve(context.Background(), "tok-unknown")
	assert.ErrorIs(t, err, ErrUnknownToken)
}

func TestBearerRoutesRequireIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, reservationapp.ListGuestReservationsQuery{}.Key(), &reservationapp.ListGuestReservationsHandler{
		UoWFactory: memory.Factory{
			ListingsRepo:     memory.NewListingRepository(),
			ReservationsRepo: memory.NewReservationRepository(),
		},
	})
	handler := ReservationHandler{Queries: queryBus}

	router := gin.New()
	router.Use(AuthMiddleware{Resolver: NewStaticTokenResolver("tok-guest:guest-1")}.Handle)
	router.GET("/api/v1/me/reservations", handler.ListMine)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me/reservations", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/me/reservations", nil)
	req.Header.Set("Authorization", "Bearer tok-guest")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[]}`, rec.Body.String())
}

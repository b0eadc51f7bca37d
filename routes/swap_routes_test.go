package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"busfleet/internal/handlers"
	"busfleet/internal/models"
	"busfleet/internal/services"
	"busfleet/internal/utils"
	"busfleet/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const routeTestSecret = "route-test-secret"

type cancelCall struct {
	actorID primitive.ObjectID
	isAdmin bool
}

// stubSwapLedger records cancels and answers everything else with zero values.
type stubSwapLedger struct {
	mu      sync.Mutex
	cancels []cancelCall
}

func (s *stubSwapLedger) CreateSwapRequest(ctx context.Context, requesterID primitive.ObjectID, input *services.CreateSwapRequestInput) (*models.SwapRequest, error) {
	return &models.SwapRequest{}, nil
}

func (s *stubSwapLedger) GetSwapRequest(ctx context.Context, requestID, actorID primitive.ObjectID, isAdmin bool) (*models.SwapRequest, error) {
	return &models.SwapRequest{}, nil
}

func (s *stubSwapLedger) Accept(ctx context.Context, requestID, actorID primitive.ObjectID) (*models.TemporaryAssignment, error) {
	return &models.TemporaryAssignment{}, nil
}

func (s *stubSwapLedger) Reject(ctx context.Context, requestID, actorID primitive.ObjectID) error {
	return nil
}

func (s *stubSwapLedger) Cancel(ctx context.Context, requestID, actorID primitive.ObjectID, isAdmin bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancels = append(s.cancels, cancelCall{actorID: actorID, isAdmin: isAdmin})
	return nil
}

func (s *stubSwapLedger) ListIncoming(ctx context.Context, driverID primitive.ObjectID, params *utils.PaginationParams) ([]*models.SwapRequest, int64, error) {
	return nil, 0, nil
}

func (s *stubSwapLedger) ListOutgoing(ctx context.Context, driverID primitive.ObjectID, params *utils.PaginationParams) ([]*models.SwapRequest, int64, error) {
	return nil, 0, nil
}

func newSwapRouter(t *testing.T, ledger services.SwapLedger) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log, err := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Format: "text", Output: "stdout"})
	require.NoError(t, err)

	swapHandler := handlers.NewSwapHandler(ledger, log)
	assignmentHandler := handlers.NewAssignmentHandler(nil, log)
	fleetHandler := handlers.NewFleetHandler(nil, log)
	sweepHandler := handlers.NewSweepHandler(nil, log)

	router := gin.New()
	v1 := router.Group("/api/v1")
	SetupSwapRoutes(v1, routeTestSecret, swapHandler, assignmentHandler)
	SetupAdminRoutes(v1, routeTestSecret, swapHandler, assignmentHandler, fleetHandler, sweepHandler)
	return router
}

func doPost(router *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCancelRoutes(t *testing.T) {
	ledger := &stubSwapLedger{}
	router := newSwapRouter(t, ledger)
	requestID := primitive.NewObjectID()

	driverToken, err := utils.GenerateToken(primitive.NewObjectID(), utils.UserTypeDriver, routeTestSecret, time.Minute)
	require.NoError(t, err)
	adminToken, err := utils.GenerateToken(primitive.NewObjectID(), utils.UserTypeAdmin, routeTestSecret, time.Minute)
	require.NoError(t, err)

	// Requesters cancel through the driver-gated swaps group.
	w := doPost(router, "/api/v1/swaps/"+requestID.Hex()+"/cancel", driverToken)
	assert.Equal(t, http.StatusOK, w.Code)

	// Admins are not admitted there; their cancel lives under /admin.
	w = doPost(router, "/api/v1/swaps/"+requestID.Hex()+"/cancel", adminToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doPost(router, "/api/v1/admin/swaps/"+requestID.Hex()+"/cancel", adminToken)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doPost(router, "/api/v1/admin/swaps/"+requestID.Hex()+"/cancel", driverToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	require.Len(t, ledger.cancels, 2)
	assert.False(t, ledger.cancels[0].isAdmin)
	assert.True(t, ledger.cancels[1].isAdmin)
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"busfleet/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const testSecret = "test-secret"

func newAuthRouter(extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handlers := append([]gin.HandlerFunc{AuthRequired(testSecret)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		userID, _ := GetUserID(c)
		c.JSON(http.StatusOK, gin.H{"user_id": userID.Hex()})
	})
	router.GET("/protected", handlers...)
	return router
}

func doRequest(router *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	router := newAuthRouter()

	w := doRequest(router, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(router, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := utils.GenerateToken(primitive.NewObjectID(), utils.UserTypeDriver, testSecret, time.Minute)
	require.NoError(t, err)
	w = doRequest(router, token)
	assert.Equal(t, http.StatusOK, w.Code)

	// Wrong signing secret.
	token, err = utils.GenerateToken(primitive.NewObjectID(), utils.UserTypeDriver, "other-secret", time.Minute)
	require.NoError(t, err)
	w = doRequest(router, token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Expired token.
	token, err = utils.GenerateToken(primitive.NewObjectID(), utils.UserTypeDriver, testSecret, -time.Minute)
	require.NoError(t, err)
	w = doRequest(router, token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRoleMiddleware(t *testing.T) {
	driverToken, err := utils.GenerateToken(primitive.NewObjectID(), utils.UserTypeDriver, testSecret, time.Minute)
	require.NoError(t, err)
	adminToken, err := utils.GenerateToken(primitive.NewObjectID(), utils.UserTypeAdmin, testSecret, time.Minute)
	require.NoError(t, err)

	adminOnly := newAuthRouter(AdminRequired())
	assert.Equal(t, http.StatusForbidden, doRequest(adminOnly, driverToken).Code)
	assert.Equal(t, http.StatusOK, doRequest(adminOnly, adminToken).Code)

	driverOnly := newAuthRouter(DriverRequired())
	assert.Equal(t, http.StatusOK, doRequest(driverOnly, driverToken).Code)
	assert.Equal(t, http.StatusForbidden, doRequest(driverOnly, adminToken).Code)

	// Moderator gate admits admins too.
	moderatorGate := newAuthRouter(ModeratorRequired())
	assert.Equal(t, http.StatusForbidden, doRequest(moderatorGate, driverToken).Code)
	assert.Equal(t, http.StatusOK, doRequest(moderatorGate, adminToken).Code)
}

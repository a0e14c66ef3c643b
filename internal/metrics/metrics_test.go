package metrics

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveAccrualRun(t *testing.T) {
	runs := accrualRuns.WithLabelValues("cli")
	completed := accrualInvestments.WithLabelValues("completed")
	before, beforeCompleted := testutil.ToFloat64(runs), testutil.ToFloat64(completed)

	ObserveAccrualRun("cli", 10, 4, 2, 1, 0, 0)

	assert.Equal(t, before+1, testutil.ToFloat64(runs))
	assert.Equal(t, beforeCompleted+2, testutil.ToFloat64(completed))
}

func TestMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/investments/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	counter := httpRequests.WithLabelValues(http.MethodGet, "/investments/:id", "200")
	before := testutil.ToFloat64(counter)

	for i := 0; i < 3; i++ {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/investments/"+strconv.Itoa(i), nil))
	}
	assert.Equal(t, before+3, testutil.ToFloat64(counter))
}

func TestHandlerExposesNamespace(t *testing.T) {
	ObserveAccrualRun("http", 0, 0, 0, 0, 0, time.Second)

	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "invest_platform_accrual_runs_total")
}

// handlers/router.go
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/opencovid/api/models"
	"github.com/opencovid/api/observability"
	"github.com/opencovid/api/services"
	"github.com/opencovid/api/snapshot"
)

// Trigger runs an out-of-schedule check of one source.
type Trigger interface {
	Trigger(ctx context.Context, name string) (services.CheckResult, error)
}

// RefreshLister reads the refresh audit log.
type RefreshLister interface {
	RecentRefreshes(ctx context.Context, source string, limit int) ([]models.RefreshRecord, error)
}

// Deps are the collaborators of the HTTP layer. Refreshes and Metrics may be nil.
type Deps struct {
	Timeseries *snapshot.Store[*models.Timeseries]
	Datasets   *snapshot.Store[*models.Manifest]
	Archive    *snapshot.Store[*models.ArchiveData]

	Scheduler Trigger
	Refreshes RefreshLister
	Metrics   *observability.Metrics
	Gatherer  prometheus.Gatherer

	// Location is the timezone "today" is computed in for filled queries.
	Location *time.Location
	Now      func() time.Time
}

// Handlers serves the public API from the current snapshots.
type Handlers struct {
	deps Deps
}

func New(d Deps) *Handlers {
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}
	return &Handlers{deps: d}
}

func (h *Handlers) today() civil.Date {
	return civil.DateOf(h.deps.Now().In(h.deps.Location))
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(d Deps) *gin.Engine {
	registerTagNames()
	h := New(d)

	r := gin.New()
	r.Use(gin.Recovery(), requestID(), requestLogger(), h.observeQueries())

	r.GET("/timeseries", h.GetTimeseries)
	r.GET("/summary", h.GetSummary)
	r.GET("/version", h.GetVersion)
	r.GET("/datasets", h.GetDatasets)
	r.GET("/archive", h.GetArchive)
	r.GET("/other", h.GetOther)
	r.GET("/health", h.GetHealth)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.deps.Gatherer, promhttp.HandlerOpts{})))

	admin := r.Group("/admin")
	admin.POST("/refresh/:source", h.ForceRefresh)
	admin.GET("/refreshes", h.GetRefreshes)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not Found"})
	})
	return r
}

var registerOnce sync.Once

// registerTagNames makes validation errors report the query parameter name, so a bad
// ?format= value surfaces as "Invalid format".
func registerTagNames() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

const requestIDHeader = "X-Request-ID"

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("Request handled",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"request_id", c.GetString("request_id"),
		)
	}
}

func (h *Handlers) observeQueries() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		h.deps.Metrics.ObserveQuery(route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

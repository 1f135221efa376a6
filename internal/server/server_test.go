package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ecommerce-dashboard/internal/dataset"
	"ecommerce-dashboard/internal/rfm"
	"ecommerce-dashboard/internal/runner"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// sampleTables gives customer cN N orders, the last one 3(N-1) days
// before 2018-06-30, each worth 10N.
func sampleTables(customers int) *dataset.Tables {
	newest := time.Date(2018, 6, 30, 15, 0, 0, 0, time.UTC)
	t := &dataset.Tables{
		Products: []dataset.Product{{ProductID: "p1", Category: "perfumaria"}, {ProductID: "p2", Category: "automotivo"}},
		Sellers:  []dataset.Seller{{SellerID: "s1", ZipCodePrefix: "13023", State: "SP"}},
		Geolocation: []dataset.Geolocation{
			{ZipCodePrefix: "01037", Lat: -23.54, Lng: -46.63},
			{ZipCodePrefix: "13023", Lat: -22.89, Lng: -47.06},
		},
	}
	for c := 1; c <= customers; c++ {
		cid := fmt.Sprintf("c%d", c)
		state := "SP"
		if c%2 == 0 {
			state = "RJ"
		}
		t.Customers = append(t.Customers, dataset.Customer{CustomerID: cid, ZipCodePrefix: "01037", State: state})
		for n := 0; n < c; n++ {
			id := fmt.Sprintf("o%d-%d", c, n)
			t.Orders = append(t.Orders, dataset.Order{
				OrderID:           id,
				CustomerID:        cid,
				PurchaseTimestamp: newest.AddDate(0, 0, -3*(c-1)-n),
			})
			product := "p1"
			if n%2 == 1 {
				product = "p2"
			}
			t.OrderItems = append(t.OrderItems, dataset.OrderItem{
				OrderID:      id,
				ItemSeq:      1,
				ProductID:    product,
				SellerID:     "s1",
				Price:        decimal.NewFromInt(int64(10 * c)),
				FreightValue: decimal.NewFromInt(2),
			})
			t.Reviews = append(t.Reviews, dataset.Review{ReviewID: "r" + id, OrderID: id, Score: 1 + (c+n)%5})
		}
	}
	return t
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *ErrorInfo      `json:"error"`
}

func get(t *testing.T, s *Server, path string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	var body envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return w.Code, body
}

func newServer(t *testing.T, customers int) *Server {
	t.Helper()
	memo, err := rfm.NewMemo(4)
	require.NoError(t, err)
	return New(sampleTables(customers), runner.Options{Memo: memo}, nil)
}

func TestHealthz(t *testing.T) {
	s := newServer(t, 8)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestOverview(t *testing.T) {
	s := newServer(t, 8)

	code, body := get(t, s, "/api/overview")
	require.Equal(t, http.StatusOK, code)
	var data struct {
		Start   string `json:"start"`
		End     string `json:"end"`
		Summary struct {
			TotalOrders int `json:"total_orders"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &data))
	assert.Equal(t, 36, data.Summary.TotalOrders)
	assert.Equal(t, "2018-06-30", data.End)

	code, body = get(t, s, "/api/overview?start=2018-06-30&end=2018-06-30")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(body.Data, &data))
	assert.Equal(t, 1, data.Summary.TotalOrders)
}

func TestDateValidation(t *testing.T) {
	s := newServer(t, 8)
	for _, path := range []string{
		"/api/overview?start=2018-02-30",
		"/api/trends/daily?end=yesterday",
		"/api/dashboard?start=2018-06-30&end=2018-06-01",
	} {
		code, body := get(t, s, path)
		assert.Equal(t, http.StatusBadRequest, code, path)
		require.NotNil(t, body.Error, path)
		assert.Equal(t, ErrCodeBadRequest, body.Error.Code)
		assert.False(t, body.Success)
	}
}

func TestDailyTrend(t *testing.T) {
	s := newServer(t, 8)
	code, body := get(t, s, "/api/trends/daily?start=2018-06-27&end=2018-06-30")
	require.Equal(t, http.StatusOK, code)

	var days []struct {
		Date   string `json:"date"`
		Orders int    `json:"orders"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &days))
	require.Len(t, days, 4)
	assert.Equal(t, "2018-06-27", days[0].Date)
	assert.Equal(t, 1, days[3].Orders)
}

func TestTopCategoriesAndStates(t *testing.T) {
	s := newServer(t, 8)

	code, body := get(t, s, "/api/products/top?limit=1")
	require.Equal(t, http.StatusOK, code)
	var cats []map[string]any
	require.NoError(t, json.Unmarshal(body.Data, &cats))
	assert.Len(t, cats, 1)

	code, _ = get(t, s, "/api/products/top?limit=zero")
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = get(t, s, "/api/customers/states")
	require.Equal(t, http.StatusOK, code)
	var states []struct {
		State     string `json:"state"`
		Customers int    `json:"customers"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &states))
	require.Len(t, states, 2)
	assert.Equal(t, 4, states[0].Customers)
}

func TestReviewsGeoAndScatter(t *testing.T) {
	s := newServer(t, 8)

	code, body := get(t, s, "/api/reviews/scores")
	require.Equal(t, http.StatusOK, code)
	var scores []map[string]int
	require.NoError(t, json.Unmarshal(body.Data, &scores))
	assert.Len(t, scores, 5)

	code, body = get(t, s, "/api/geo")
	require.Equal(t, http.StatusOK, code)
	var geo struct {
		Customers struct {
			Points    [][2]float64 `json:"points"`
			Unmatched int          `json:"unmatched"`
		} `json:"customers"`
		Bounds *struct{} `json:"bounds"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &geo))
	assert.Len(t, geo.Customers.Points, 8)
	assert.Equal(t, [2]float64{-46.63, -23.54}, geo.Customers.Points[0])
	assert.NotNil(t, geo.Bounds)

	code, body = get(t, s, "/api/products/price-freight")
	require.Equal(t, http.StatusOK, code)
	var points []map[string]string
	require.NoError(t, json.Unmarshal(body.Data, &points))
	assert.Len(t, points, 36)
}

func TestRFMEndpoints(t *testing.T) {
	s := newServer(t, 8)

	code, body := get(t, s, "/api/rfm")
	require.Equal(t, http.StatusOK, code)
	var table struct {
		Scope     string            `json:"scope"`
		Customers []rfm.CustomerRFM `json:"customers"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &table))
	assert.Equal(t, "all_orders", table.Scope)
	require.Len(t, table.Customers, 8)
	assert.Equal(t, "c1", table.Customers[0].CustomerID)

	top := table.Customers[7].RFMScore
	code, body = get(t, s, "/api/rfm?segment="+top)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(body.Data, &table))
	require.NotEmpty(t, table.Customers)
	for _, c := range table.Customers {
		assert.Equal(t, top, c.RFMScore)
	}

	code, body = get(t, s, "/api/rfm?segment=999")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(body.Data, &table))
	assert.Empty(t, table.Customers)

	code, body = get(t, s, "/api/rfm/customers/c8")
	require.Equal(t, http.StatusOK, code)
	var row rfm.CustomerRFM
	require.NoError(t, json.Unmarshal(body.Data, &row))
	assert.Equal(t, 8, row.Frequency)
	assert.Equal(t, 21, row.Recency)

	code, body = get(t, s, "/api/rfm/customers/nobody")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, ErrCodeNotFound, body.Error.Code)

	code, body = get(t, s, "/api/rfm/heatmap")
	require.Equal(t, http.StatusOK, code)
	var heat struct {
		Values [4][4]*string `json:"values"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &heat))
	defined := 0
	for _, row := range heat.Values {
		for _, v := range row {
			if v != nil {
				defined++
			}
		}
	}
	assert.Positive(t, defined)
}

func TestRFM_DataQualityIs422(t *testing.T) {
	s := newServer(t, 3)

	code, body := get(t, s, "/api/rfm")
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	require.NotNil(t, body.Error)
	assert.Equal(t, ErrCodeDataQuality, body.Error.Code)
	assert.Contains(t, body.Error.Message, "recency")

	// the full dashboard degrades instead of failing
	code, body = get(t, s, "/api/dashboard")
	require.Equal(t, http.StatusOK, code)
	var d map[string]any
	require.NoError(t, json.Unmarshal(body.Data, &d))
	assert.NotContains(t, d, "rfm")
	assert.NotEmpty(t, d["rfm_error"])
}

func TestDashboardAndStats(t *testing.T) {
	s := newServer(t, 8)

	code, body := get(t, s, "/api/dashboard")
	require.Equal(t, http.StatusOK, code)
	var d struct {
		RFMScope string `json:"rfm_scope"`
		RFM      *struct {
			Customers []json.RawMessage `json:"customers"`
		} `json:"rfm"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &d))
	assert.Equal(t, "all_orders", d.RFMScope)
	require.NotNil(t, d.RFM)
	assert.Len(t, d.RFM.Customers, 8)

	get(t, s, "/api/dashboard?start=2018-06-01")

	code, body = get(t, s, "/api/stats")
	require.Equal(t, http.StatusOK, code)
	var stats struct {
		Builds struct {
			Count int64 `json:"count"`
		} `json:"dashboard_builds"`
		Cache rfm.MemoStats `json:"rfm_cache"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &stats))
	assert.Equal(t, int64(2), stats.Builds.Count)
	assert.Equal(t, rfm.MemoStats{Hits: 1, Misses: 1}, stats.Cache)
}

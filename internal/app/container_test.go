package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/item-rental-backend/internal/api"
	"github.com/nekogravitycat/item-rental-backend/internal/app"
	"github.com/nekogravitycat/item-rental-backend/internal/auth"
	"github.com/nekogravitycat/item-rental-backend/internal/booking"
	bookingHttp "github.com/nekogravitycat/item-rental-backend/internal/booking/http"
	"github.com/nekogravitycat/item-rental-backend/internal/item"
	itemHttp "github.com/nekogravitycat/item-rental-backend/internal/itemview/http"
	"github.com/nekogravitycat/item-rental-backend/internal/pkg/clock"
	"github.com/nekogravitycat/item-rental-backend/internal/pkg/localtime"
	"github.com/nekogravitycat/item-rental-backend/internal/user"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type testApp struct {
	router     *gin.Engine
	jwtManager *auth.JWTManager
	repos      app.Repositories
	clock      *clock.Fixed
}

func newTestApp(t *testing.T, opts booking.Options) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clk := clock.NewFixed(testNow)
	c := app.NewContainer(app.Config{
		Clock:          clk,
		JWTSecret:      "test-secret",
		JWTTTL:         30 * time.Minute,
		Booking:        opts,
		MetricsEnabled: true,
	})
	return &testApp{router: c.Router, jwtManager: c.JWTManager, repos: c.Repositories, clock: clk}
}

func (a *testApp) executeRequest(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reqBody []byte
	if body != nil {
		reqBody, _ = json.Marshal(body)
	}

	req, _ := http.NewRequest(method, path, bytes.NewBuffer(reqBody))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testApp) createTestUser(t *testing.T, email, name string) (*user.User, string) {
	u := &user.User{Email: email, Name: name}
	require.NoError(t, a.repos.Users.Create(context.Background(), u), "Failed to create test user")

	token, err := a.jwtManager.GenerateAccessToken(u.ID)
	require.NoError(t, err)
	return u, token
}

func (a *testApp) createTestItem(t *testing.T, ownerID int64, name string, available bool) *item.Item {
	it := &item.Item{OwnerID: ownerID, Name: name, Description: name + " for rent", Available: available}
	require.NoError(t, a.repos.Items.Create(context.Background(), it), "Failed to create test item")
	return it
}

type bookingPayload struct {
	ItemID int64  `json:"itemId"`
	Start  string `json:"start"`
	End    string `json:"end"`
}

func (a *testApp) payload(itemID int64, from, to time.Duration) bookingPayload {
	return bookingPayload{
		ItemID: itemID,
		Start:  localtime.From(a.clock.Now().Add(from)).String(),
		End:    localtime.From(a.clock.Now().Add(to)).String(),
	}
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestBookingLifecycle(t *testing.T) {
	a := newTestApp(t, booking.Options{})

	owner, ownerToken := a.createTestUser(t, "owner@rent.com", "Owner")
	booker, bookerToken := a.createTestUser(t, "booker@rent.com", "Booker")
	_, strangerToken := a.createTestUser(t, "stranger@rent.com", "Stranger")
	saw := a.createTestItem(t, owner.ID, "Saw", true)
	broken := a.createTestItem(t, owner.ID, "Broken Saw", false)

	var bookingID int64

	t.Run("Create Booking: Success", func(t *testing.T) {
		w := a.executeRequest("POST", "/v1/bookings", a.payload(saw.ID, time.Hour, 2*time.Hour), bookerToken)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		resp := decode[bookingHttp.BookingResponse](t, w)
		assert.NotZero(t, resp.ID)
		assert.Equal(t, booking.StatusWaiting, resp.Status)
		assert.Equal(t, booker.ID, resp.Booker.ID)
		assert.Equal(t, "Booker", resp.Booker.Name)
		assert.Equal(t, saw.ID, resp.Item.ID)
		assert.Equal(t, "Saw", resp.Item.Name)
		assert.Equal(t, "2024-06-01T13:00:00", resp.Start.String())

		bookingID = resp.ID
	})

	t.Run("Create Booking: Wire Format", func(t *testing.T) {
		w := a.executeRequest("POST", "/v1/bookings", a.payload(saw.ID, 3*time.Hour, 4*time.Hour), bookerToken)
		require.Equal(t, http.StatusCreated, w.Code)

		raw := decode[map[string]any](t, w)
		assert.Equal(t, "2024-06-01T15:00:00", raw["start"])
		assert.Equal(t, "2024-06-01T16:00:00", raw["end"])
		assert.Equal(t, "WAITING", raw["status"])
	})

	t.Run("Create Booking: Unauthorized (No Token)", func(t *testing.T) {
		w := a.executeRequest("POST", "/v1/bookings", a.payload(saw.ID, time.Hour, 2*time.Hour), "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Create Booking: Validation Failures", func(t *testing.T) {
		cases := map[string]bookingPayload{
			"start in past":  a.payload(saw.ID, -time.Hour, time.Hour),
			"end in past":    {ItemID: saw.ID, Start: localtime.From(testNow).String(), End: localtime.From(testNow).String()},
			"end before":     a.payload(saw.ID, 2*time.Hour, time.Hour),
			"same instant":   a.payload(saw.ID, time.Hour, time.Hour),
			"missing item":   {Start: localtime.From(testNow.Add(time.Hour)).String(), End: localtime.From(testNow.Add(2 * time.Hour)).String()},
			"malformed time": {ItemID: saw.ID, Start: "tomorrow", End: "later"},
			"unavailable":    a.payload(broken.ID, time.Hour, 2*time.Hour),
		}
		for name, p := range cases {
			w := a.executeRequest("POST", "/v1/bookings", p, bookerToken)
			assert.Equal(t, http.StatusBadRequest, w.Code, name)
		}
	})

	t.Run("Create Booking: Not Found", func(t *testing.T) {
		w := a.executeRequest("POST", "/v1/bookings", a.payload(9999, time.Hour, 2*time.Hour), bookerToken)
		assert.Equal(t, http.StatusNotFound, w.Code)

		// Owners cannot book their own item.
		w = a.executeRequest("POST", "/v1/bookings", a.payload(saw.ID, time.Hour, 2*time.Hour), ownerToken)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Get Booking: Access", func(t *testing.T) {
		path := fmt.Sprintf("/v1/bookings/%d", bookingID)

		assert.Equal(t, http.StatusOK, a.executeRequest("GET", path, nil, bookerToken).Code)
		assert.Equal(t, http.StatusOK, a.executeRequest("GET", path, nil, ownerToken).Code)
		assert.Equal(t, http.StatusNotFound, a.executeRequest("GET", path, nil, strangerToken).Code)
		assert.Equal(t, http.StatusNotFound, a.executeRequest("GET", "/v1/bookings/9999", nil, bookerToken).Code)
		assert.Equal(t, http.StatusBadRequest, a.executeRequest("GET", "/v1/bookings/abc", nil, bookerToken).Code)
	})

	t.Run("Decide Booking: Permissions", func(t *testing.T) {
		path := fmt.Sprintf("/v1/bookings/%d?approved=true", bookingID)

		assert.Equal(t, http.StatusNotFound, a.executeRequest("PATCH", path, nil, bookerToken).Code)
		assert.Equal(t, http.StatusNotFound, a.executeRequest("PATCH", path, nil, strangerToken).Code)

		w := a.executeRequest("PATCH", fmt.Sprintf("/v1/bookings/%d", bookingID), nil, ownerToken)
		assert.Equal(t, http.StatusBadRequest, w.Code, "approved is required")

		w = a.executeRequest("PATCH", fmt.Sprintf("/v1/bookings/%d?approved=maybe", bookingID), nil, ownerToken)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Decide Booking: Approve Once", func(t *testing.T) {
		path := fmt.Sprintf("/v1/bookings/%d?approved=true", bookingID)

		w := a.executeRequest("PATCH", path, nil, ownerToken)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, booking.StatusApproved, decode[bookingHttp.BookingResponse](t, w).Status)

		w = a.executeRequest("PATCH", fmt.Sprintf("/v1/bookings/%d?approved=false", bookingID), nil, ownerToken)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = a.executeRequest("GET", fmt.Sprintf("/v1/bookings/%d", bookingID), nil, bookerToken)
		assert.Equal(t, booking.StatusApproved, decode[bookingHttp.BookingResponse](t, w).Status)
	})
}

func TestBookingListing(t *testing.T) {
	a := newTestApp(t, booking.Options{})

	owner, ownerToken := a.createTestUser(t, "owner@rent.com", "Owner")
	_, bookerToken := a.createTestUser(t, "booker@rent.com", "Booker")
	ladder := a.createTestItem(t, owner.ID, "Ladder", true)

	// Create future bookings, then move the clock so they fall into each window.
	var ids []int64
	for _, window := range [][2]time.Duration{
		{time.Minute, 9 * time.Minute},
		{11 * time.Minute, 13 * time.Minute},
		{14 * time.Minute, 20 * time.Minute},
	} {
		w := a.executeRequest("POST", "/v1/bookings", a.payload(ladder.ID, window[0], window[1]), bookerToken)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		ids = append(ids, decode[bookingHttp.BookingResponse](t, w).ID)
	}
	a.clock.Advance(12 * time.Minute)

	listIDs := func(t *testing.T, path, token string) []int64 {
		w := a.executeRequest("GET", path, nil, token)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var out []int64
		for _, b := range decode[[]bookingHttp.BookingResponse](t, w) {
			out = append(out, b.ID)
		}
		return out
	}

	t.Run("List Bookings: Views", func(t *testing.T) {
		for _, base := range []struct {
			path  string
			token string
		}{{"/v1/bookings", bookerToken}, {"/v1/bookings/owner", ownerToken}} {
			assert.Equal(t, []int64{ids[2], ids[1], ids[0]}, listIDs(t, base.path, base.token), "default ALL")
			assert.Equal(t, []int64{ids[0]}, listIDs(t, base.path+"?state=PAST", base.token))
			assert.Equal(t, []int64{ids[1]}, listIDs(t, base.path+"?state=CURRENT", base.token))
			assert.Equal(t, []int64{ids[2]}, listIDs(t, base.path+"?state=FUTURE", base.token))
			assert.Len(t, listIDs(t, base.path+"?state=WAITING", base.token), 3)
			assert.Empty(t, listIDs(t, base.path+"?state=APPROVED", base.token))
		}
	})

	t.Run("List Bookings: Empty Is Array", func(t *testing.T) {
		w := a.executeRequest("GET", "/v1/bookings/owner", nil, bookerToken)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, "[]", w.Body.String())
	})

	t.Run("List Bookings: Unknown State", func(t *testing.T) {
		w := a.executeRequest("GET", "/v1/bookings?state=UNSUPPORTED", nil, bookerToken)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"Unknown state: UNSUPPORTED"}`, w.Body.String())

		w = a.executeRequest("GET", "/v1/bookings/owner?state=all", nil, ownerToken)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"Unknown state: all"}`, w.Body.String())
	})

	t.Run("List Bookings: Pagination", func(t *testing.T) {
		assert.Equal(t, []int64{ids[2], ids[1]}, listIDs(t, "/v1/bookings?from=0&size=2", bookerToken))
		assert.Equal(t, []int64{ids[0]}, listIDs(t, "/v1/bookings?from=2&size=2", bookerToken))
		assert.Empty(t, listIDs(t, "/v1/bookings?from=10&size=2", bookerToken))

		for _, q := range []string{"from=-1", "size=0", "size=101", "from=x"} {
			w := a.executeRequest("GET", "/v1/bookings?"+q, nil, bookerToken)
			assert.Equal(t, http.StatusBadRequest, w.Code, q)
		}
	})
}

func TestBookingPageFallback(t *testing.T) {
	a := newTestApp(t, booking.Options{PageFallback: true})

	owner, _ := a.createTestUser(t, "owner@rent.com", "Owner")
	_, bookerToken := a.createTestUser(t, "booker@rent.com", "Booker")
	_, idleToken := a.createTestUser(t, "idle@rent.com", "Idle")
	drill := a.createTestItem(t, owner.ID, "Drill", true)

	w := a.executeRequest("POST", "/v1/bookings", a.payload(drill.ID, time.Hour, 2*time.Hour), bookerToken)
	require.Equal(t, http.StatusCreated, w.Code)

	w = a.executeRequest("GET", "/v1/bookings?from=40&size=10", nil, bookerToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]bookingHttp.BookingResponse](t, w), 1)

	w = a.executeRequest("GET", "/v1/bookings", nil, idleToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConcurrentDecisions(t *testing.T) {
	a := newTestApp(t, booking.Options{})

	owner, ownerToken := a.createTestUser(t, "owner@rent.com", "Owner")
	_, bookerToken := a.createTestUser(t, "booker@rent.com", "Booker")
	bike := a.createTestItem(t, owner.ID, "Bike", true)

	w := a.executeRequest("POST", "/v1/bookings", a.payload(bike.ID, time.Hour, 2*time.Hour), bookerToken)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[bookingHttp.BookingResponse](t, w).ID

	var wg sync.WaitGroup
	codes := make([]int, 10)
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			path := fmt.Sprintf("/v1/bookings/%d?approved=%t", id, i%2 == 0)
			codes[i] = a.executeRequest("PATCH", path, nil, ownerToken).Code
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, code := range codes {
		if code == http.StatusOK {
			ok++
		} else {
			assert.Equal(t, http.StatusBadRequest, code)
		}
	}
	assert.Equal(t, 1, ok)
}

func TestItemDetailAndComments(t *testing.T) {
	a := newTestApp(t, booking.Options{})

	owner, ownerToken := a.createTestUser(t, "owner@rent.com", "Owner")
	booker, bookerToken := a.createTestUser(t, "booker@rent.com", "Booker")
	canoe := a.createTestItem(t, owner.ID, "Canoe", true)

	w := a.executeRequest("POST", "/v1/bookings", a.payload(canoe.ID, time.Hour, 2*time.Hour), bookerToken)
	require.Equal(t, http.StatusCreated, w.Code)
	firstID := decode[bookingHttp.BookingResponse](t, w).ID

	w = a.executeRequest("POST", "/v1/bookings", a.payload(canoe.ID, 5*time.Hour, 6*time.Hour), bookerToken)
	require.Equal(t, http.StatusCreated, w.Code)
	secondID := decode[bookingHttp.BookingResponse](t, w).ID

	for _, id := range []int64{firstID, secondID} {
		w = a.executeRequest("PATCH", fmt.Sprintf("/v1/bookings/%d?approved=true", id), nil, ownerToken)
		require.Equal(t, http.StatusOK, w.Code)
	}

	commentPath := fmt.Sprintf("/v1/items/%d/comment", canoe.ID)

	t.Run("Comment: Before Rental Ends", func(t *testing.T) {
		w := a.executeRequest("POST", commentPath, map[string]string{"text": "Nice"}, bookerToken)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	a.clock.Advance(3 * time.Hour)

	t.Run("Comment: Success", func(t *testing.T) {
		w := a.executeRequest("POST", commentPath, map[string]string{"text": "Nice canoe"}, bookerToken)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		resp := decode[itemHttp.CommentResponse](t, w)
		assert.Equal(t, "Nice canoe", resp.Text)
		assert.Equal(t, booker.Name, resp.AuthorName)
	})

	t.Run("Comment: Validation", func(t *testing.T) {
		w := a.executeRequest("POST", commentPath, map[string]string{"text": ""}, bookerToken)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = a.executeRequest("POST", commentPath, map[string]string{"text": "Mine"}, ownerToken)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = a.executeRequest("POST", "/v1/items/9999/comment", map[string]string{"text": "?"}, bookerToken)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Item Detail: Owner", func(t *testing.T) {
		w := a.executeRequest("GET", fmt.Sprintf("/v1/items/%d", canoe.ID), nil, ownerToken)
		require.Equal(t, http.StatusOK, w.Code)

		resp := decode[itemHttp.ItemDetailResponse](t, w)
		assert.Equal(t, "Canoe", resp.Name)
		require.NotNil(t, resp.LastBooking)
		require.NotNil(t, resp.NextBooking)
		assert.Equal(t, firstID, resp.LastBooking.ID)
		assert.Equal(t, booker.ID, resp.LastBooking.BookerID)
		assert.Equal(t, secondID, resp.NextBooking.ID)
		require.Len(t, resp.Comments, 1)
	})

	t.Run("Item Detail: Non Owner", func(t *testing.T) {
		w := a.executeRequest("GET", fmt.Sprintf("/v1/items/%d", canoe.ID), nil, bookerToken)
		require.Equal(t, http.StatusOK, w.Code)

		raw := decode[map[string]any](t, w)
		assert.Nil(t, raw["lastBooking"])
		assert.Nil(t, raw["nextBooking"])
		assert.Len(t, raw["comments"], 1)
	})

	t.Run("Item Detail: Not Found", func(t *testing.T) {
		w := a.executeRequest("GET", "/v1/items/9999", nil, ownerToken)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHeaderAuthMode(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c := app.NewContainer(app.Config{
		Clock:      clock.NewFixed(testNow),
		HeaderAuth: true,
		UserHeader: auth.DefaultUserHeader,
	})

	owner := &user.User{Email: "owner@rent.com", Name: "Owner"}
	require.NoError(t, c.Repositories.Users.Create(context.Background(), owner))

	req, _ := http.NewRequest("GET", "/v1/bookings/owner", nil)
	req.Header.Set(auth.DefaultUserHeader, fmt.Sprint(owner.ID))
	w := httptest.NewRecorder()
	c.Router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req, _ = http.NewRequest("GET", "/v1/bookings/owner", nil)
	req.Header.Set(auth.DefaultUserHeader, "9999")
	w = httptest.NewRecorder()
	c.Router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	a := newTestApp(t, booking.Options{})

	_, token := a.createTestUser(t, "m@rent.com", "Metrics")
	a.executeRequest("GET", "/v1/bookings", nil, token)

	w := a.executeRequest("GET", "/metrics", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "item_rental_http_requests_total")
}

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c := app.NewContainer(app.Config{
		Clock:      clock.NewFixed(testNow),
		HeaderAuth: true,
		RateLimit:  api.RateLimitConfig{RPS: 0.001, Burst: 2},
	})

	u := &user.User{Email: "busy@rent.com", Name: "Busy"}
	require.NoError(t, c.Repositories.Users.Create(context.Background(), u))

	var codes []int
	for i := 0; i < 3; i++ {
		req, _ := http.NewRequest("GET", "/v1/bookings", nil)
		req.Header.Set(auth.DefaultUserHeader, fmt.Sprint(u.ID))
		w := httptest.NewRecorder()
		c.Router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

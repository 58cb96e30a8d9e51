package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/carlot/internal/inventory"
	"github.com/sells-group/carlot/internal/model"
	"github.com/sells-group/carlot/internal/money"
	"github.com/sells-group/carlot/internal/store"
	"github.com/sells-group/carlot/pkg/relay"
	"github.com/sells-group/carlot/pkg/telegram"
)

type fakeInventory struct {
	mu          sync.Mutex
	batch       *inventory.Batch
	err         error
	invalidated int
}

func (f *fakeInventory) Load(context.Context) (*inventory.Batch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.batch, f.err
}

func (f *fakeInventory) Invalidate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated++
}

type fixedRates money.Table

func (r fixedRates) Table(context.Context) money.Table { return money.Table(r).Clone() }

type stubRelay struct {
	mu   sync.Mutex
	sent []model.Inquiry
	err  error
}

func (s *stubRelay) Submit(_ context.Context, inq model.Inquiry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, inq)
	return s.err
}

type stubTranslator struct{}

func (stubTranslator) Translate(_ context.Context, text string) string {
	return "перевод: " + text
}

func intp(n int) *int           { return &n }
func floatp(f float64) *float64 { return &f }

func fleet() []model.Vehicle {
	return []model.Vehicle{
		{ID: "car_1", Brand: "Kia", Model: "Rio", Year: intp(2019), Price: floatp(8_500_000), FuelType: "Petrol", Transmission: "AT", PhotoURLs: []string{}},
		{ID: "car_2", Brand: "BMW", Model: "X5", Year: intp(2022), Price: floatp(45_000_000), FuelType: "Diesel", Transmission: "AT", PhotoURLs: []string{},
			Description: "<b>One owner</b><script>x()</script>"},
		{ID: "car_3", Brand: "Hyundai", Model: "Sonata", Year: intp(2021), Price: floatp(25_000_000), FuelType: "Petrol", Transmission: "AT", PhotoURLs: []string{}},
	}
}

type harness struct {
	inv   *fakeInventory
	relay *stubRelay
	store *store.SQLiteStore
	srv   *httptest.Server
}

func newHarness(t *testing.T, mutate func(*Deps)) *harness {
	t.Helper()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })

	h := &harness{
		inv:   &fakeInventory{batch: &inventory.Batch{Vehicles: fleet(), Source: "https://sheet", FetchedAt: time.Now()}},
		relay: &stubRelay{},
		store: st,
	}
	d := Deps{
		Inventory:  h.inv,
		Rates:      fixedRates(money.DefaultTable()),
		Relay:      h.relay,
		Translator: stubTranslator{},
		Store:      st,
		PageSize:   2,
	}
	if mutate != nil {
		mutate(&d)
	}

	s := New(d)
	s.nowFunc = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	h.srv = httptest.NewServer(s.Router())
	t.Cleanup(h.srv.Close)
	return h
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, url, body string, headers map[string]string, out any) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	h := newHarness(t, nil)
	var body map[string]string
	assert.Equal(t, http.StatusOK, getJSON(t, h.srv.URL+"/health", &body))
	assert.Equal(t, "ok", body["status"])
}

func TestListCars_Pages(t *testing.T) {
	h := newHarness(t, nil)

	var page1 CarsResponse
	require.Equal(t, http.StatusOK, getJSON(t, h.srv.URL+"/api/cars", &page1))
	assert.Len(t, page1.Cars, 2)
	assert.Equal(t, 3, page1.Total)
	assert.True(t, page1.HasMore)
	assert.Equal(t, money.USD, page1.Currency)
	assert.Equal(t, "car_1", page1.Cars[0].ID)
	assert.Equal(t, "Kia Rio", page1.Cars[0].Title)
	assert.Equal(t, model.CategoryDeal, page1.Cars[0].Category)
	assert.Equal(t, "$8,500,000", page1.Cars[0].PriceFormatted)

	var page2 CarsResponse
	require.Equal(t, http.StatusOK, getJSON(t, h.srv.URL+"/api/cars?page=2", &page2))
	require.Len(t, page2.Cars, 1)
	assert.Equal(t, "car_3", page2.Cars[0].ID)
	assert.False(t, page2.HasMore)
}

func TestListCars_PagePastEnd(t *testing.T) {
	h := newHarness(t, nil)

	for _, q := range []string{"page=50", "page=9223372036854775807"} {
		var resp CarsResponse
		require.Equal(t, http.StatusOK, getJSON(t, h.srv.URL+"/api/cars?"+q, &resp), q)
		assert.Empty(t, resp.Cars, q)
		assert.Equal(t, 3, resp.Total, q)
		assert.False(t, resp.HasMore, q)
	}
}

func TestListCars_Filters(t *testing.T) {
	h := newHarness(t, nil)

	var resp CarsResponse
	require.Equal(t, http.StatusOK, getJSON(t, h.srv.URL+"/api/cars?category=premium&currency=eur", &resp))
	require.Len(t, resp.Cars, 1)
	assert.Equal(t, "car_2", resp.Cars[0].ID)
	assert.Equal(t, money.EUR, resp.Currency)
	assert.True(t, strings.HasPrefix(resp.Cars[0].PriceFormatted, "€"))

	require.Equal(t, http.StatusOK, getJSON(t, h.srv.URL+"/api/cars?fuel=Petrol&year_from=2020", &resp))
	require.Len(t, resp.Cars, 1)
	assert.Equal(t, "car_3", resp.Cars[0].ID)
}

func TestListCars_BadParams(t *testing.T) {
	h := newHarness(t, nil)

	for _, q := range []string{"year_from=abc", "price_to=x", "currency=GBP", "category=sport", "page=two",
		"price_to=NaN", "price_from=Inf", "price_from=-Infinity", "price_to=1e400",
	} {
		var body ErrorResponse
		assert.Equal(t, http.StatusBadRequest, getJSON(t, h.srv.URL+"/api/cars?"+q, &body), q)
		assert.NotEmpty(t, body.Error, q)
	}
}

func TestListCars_SourceUnavailable(t *testing.T) {
	h := newHarness(t, nil)
	h.inv.err = &inventory.SourceUnavailableError{Attempts: []inventory.SourceAttempt{{URL: "https://sheet", StatusCode: 403}}}

	var body ErrorResponse
	assert.Equal(t, http.StatusServiceUnavailable, getJSON(t, h.srv.URL+"/api/cars", &body))
	assert.Equal(t, "unpublished", body.Reason)
	assert.True(t, body.Retryable)
	assert.Contains(t, body.Error, "not published")
}

func TestListCars_EmptyBatch(t *testing.T) {
	h := newHarness(t, nil)
	h.inv.batch = &inventory.Batch{Vehicles: []model.Vehicle{}}

	var resp CarsResponse
	assert.Equal(t, http.StatusOK, getJSON(t, h.srv.URL+"/api/cars", &resp))
	assert.True(t, resp.Empty)
	assert.NotNil(t, resp.Cars)
	assert.Empty(t, resp.Cars)
}

func TestGetCar(t *testing.T) {
	h := newHarness(t, nil)

	var car CarDetail
	require.Equal(t, http.StatusOK, getJSON(t, h.srv.URL+"/api/cars/car_2", &car))
	assert.Equal(t, "BMW", car.Brand)
	assert.Equal(t, model.CategoryPremium, car.Category)
	assert.Equal(t, "<strong>One owner</strong>", car.DescriptionHTML)

	require.Equal(t, http.StatusOK, getJSON(t, h.srv.URL+"/api/cars/car_2?translate=1", &car))
	assert.Equal(t, "перевод: <strong>One owner</strong>", car.DescriptionHTML)

	var missing ErrorResponse
	assert.Equal(t, http.StatusNotFound, getJSON(t, h.srv.URL+"/api/cars/car_99", &missing))
}

func TestGetCar_PriceHistory(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.store.SaveInventory(context.Background(), "run-1", fleet())
	require.NoError(t, err)

	var car CarDetail
	require.Equal(t, http.StatusOK, getJSON(t, h.srv.URL+"/api/cars/car_1", &car))
	require.Len(t, car.PriceHistory, 1)
	assert.Equal(t, "run-1", car.PriceHistory[0].RunID)
}

func TestFilters(t *testing.T) {
	h := newHarness(t, nil)

	var f struct {
		Brands     []string       `json:"brands"`
		Years      []int          `json:"years"`
		Categories map[string]int `json:"categories"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, h.srv.URL+"/api/filters", &f))
	assert.Equal(t, []string{"BMW", "Hyundai", "Kia"}, f.Brands)
	assert.Equal(t, []int{2022, 2021, 2019}, f.Years)
	assert.Equal(t, 1, f.Categories["premium"])
}

func TestRates(t *testing.T) {
	h := newHarness(t, func(d *Deps) { d.Currency = money.RUB })

	var r RatesResponse
	require.Equal(t, http.StatusOK, getJSON(t, h.srv.URL+"/api/rates", &r))
	assert.Equal(t, money.USD, r.Base)
	assert.Equal(t, money.RUB, r.Default)
	assert.InDelta(t, 95.0, r.Rates[money.RUB], 1e-9)
	assert.Len(t, r.Currencies, 4)
	assert.Nil(t, r.UpdatedAt)
}

func TestContact_Success(t *testing.T) {
	h := newHarness(t, nil)

	var resp ContactResponse
	status := postJSON(t, h.srv.URL+"/api/contact",
		`{"carId":"car_3","question":"Still available?","contactMethod":"telegram","currency":"RUB"}`,
		map[string]string{InitDataHeader: "user=%7B%22id%22%3A42%2C%22username%22%3A%22buyer%22%7D"}, &resp)

	require.Equal(t, http.StatusOK, status)
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.ID)

	require.Len(t, h.relay.sent, 1)
	inq := h.relay.sent[0]
	assert.Equal(t, "car_3", inq.Car.ID)
	assert.Equal(t, "https://t.me/buyer", *inq.User.UserLink)
	assert.Equal(t, model.ContactTelegram, inq.ContactMethod)
	assert.True(t, strings.HasPrefix(inq.Car.PriceFormatted, "₽"))

	stored, err := h.store.ListInquiries(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, model.InquirySent, stored[0].Status)
	assert.Equal(t, int64(42), *stored[0].UserID)
}

func TestContact_Validation(t *testing.T) {
	h := newHarness(t, nil)

	var resp ContactResponse
	status := postJSON(t, h.srv.URL+"/api/contact", `{"carId":"car_1","question":"Hi"}`, nil, &resp)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "phone", resp.Field)
	require.NotNil(t, resp.Form)
	assert.Equal(t, "whatsapp", resp.Form.ContactMethod)
	assert.Empty(t, h.relay.sent)

	status = postJSON(t, h.srv.URL+"/api/contact", `not json`, nil, &resp)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestContact_UnknownCar(t *testing.T) {
	h := newHarness(t, nil)

	var resp ContactResponse
	status := postJSON(t, h.srv.URL+"/api/contact", `{"carId":"car_404","question":"Hi","contactMethod":"phone","phone":"+1"}`, nil, &resp)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestContact_RelayFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.relay.err = &relay.SubmissionError{StatusCode: 500, Message: "The server failed to handle the request. Try again later."}

	var resp ContactResponse
	status := postJSON(t, h.srv.URL+"/api/contact", `{"carId":"car_1","question":"Hi","phone":"+7 900 000"}`, nil, &resp)

	assert.Equal(t, http.StatusBadGateway, status)
	assert.False(t, resp.Success)
	assert.True(t, resp.Retryable)
	assert.Equal(t, "The server failed to handle the request. Try again later.", resp.Error)
	require.NotNil(t, resp.Form)
	assert.Equal(t, "Hi", resp.Form.Question)
	assert.Equal(t, "+7 900 000", resp.Form.Phone)

	stored, err := h.store.ListInquiries(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, model.InquiryFailed, stored[0].Status)
	assert.NotEmpty(t, stored[0].Error)
}

func TestContact_EnforcedInitData(t *testing.T) {
	h := newHarness(t, func(d *Deps) { d.Identity = telegram.NewVerifier("123:token", time.Hour) })

	var resp ContactResponse
	status := postJSON(t, h.srv.URL+"/api/contact", `{"carId":"car_1","question":"Hi","contactMethod":"telegram"}`,
		map[string]string{InitDataHeader: "user=%7B%22id%22%3A1%7D&auth_date=1&hash=deadbeef"}, &resp)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Empty(t, h.relay.sent)
}

func TestRefresh(t *testing.T) {
	h := newHarness(t, nil)

	var resp RefreshResponse
	require.Equal(t, http.StatusOK, postJSON(t, h.srv.URL+"/api/inventory/refresh", ``, nil, &resp))
	assert.Equal(t, 3, resp.Vehicles)
	assert.Equal(t, "https://sheet", resp.Source)
	assert.Equal(t, 1, h.inv.invalidated)
}

func TestCORSPreflight(t *testing.T) {
	h := newHarness(t, func(d *Deps) { d.AllowedOrigins = []string{"https://app.example"} })

	req, err := http.NewRequest(http.MethodOptions, h.srv.URL+"/api/contact", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, "https://app.example", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t, nil)
	getJSON(t, h.srv.URL+"/health", nil)

	resp, err := http.Get(h.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/carlot/internal/catalog"
	"github.com/sells-group/carlot/internal/model"
	"github.com/sells-group/carlot/internal/money"
	"github.com/sells-group/carlot/internal/sanitize"
	"github.com/sells-group/carlot/pkg/relay"
)

// InitDataHeader carries the mini-app init data on contact requests.
const InitDataHeader = "X-Telegram-Init-Data"

// Car is a listing as the front end renders it.
type Car struct {
	model.Vehicle
	Title          string         `json:"title"`
	Category       model.Category `json:"category"`
	PriceFormatted string         `json:"price_formatted"`
}

func carView(v model.Vehicle, table money.Table, cur money.Currency) Car {
	return Car{
		Vehicle:        v,
		Title:          v.Title(),
		Category:       catalog.Classify(v),
		PriceFormatted: table.FormatPtr(v.Price, cur),
	}
}

// CarsResponse is one page of the filtered inventory.
type CarsResponse struct {
	Cars     []Car          `json:"cars"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
	Total    int            `json:"total"`
	HasMore  bool           `json:"has_more"`
	Empty    bool           `json:"empty"`
	Currency money.Currency `json:"currency"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListCars(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	criteria, err := criteriaFromQuery(q, s.deps.Currency)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	page, err := pageFromQuery(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	batch, err := s.deps.Inventory.Load(r.Context())
	if err != nil {
		writeLoadError(w, err)
		return
	}

	table := s.deps.Rates.Table(r.Context())
	filtered := catalog.Filter(batch.Vehicles, criteria, table)
	pr := catalog.Page(filtered, page, s.deps.PageSize)

	cars := make([]Car, len(pr.Items))
	for i, v := range pr.Items {
		cars[i] = carView(v, table, criteria.Currency)
	}

	writeJSON(w, http.StatusOK, CarsResponse{
		Cars:     cars,
		Page:     pr.Page,
		PageSize: pr.PageSize,
		Total:    pr.Total,
		HasMore:  pr.HasMore,
		Empty:    batch.Empty(),
		Currency: criteria.Currency,
	})
}

// CarDetail is a single listing with its rendered description.
type CarDetail struct {
	Car
	DescriptionHTML string             `json:"description_html"`
	PriceHistory    []model.PricePoint `json:"price_history,omitempty"`
}

func (s *Server) handleGetCar(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cur, err := currencyFromQuery(q, s.deps.Currency)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	batch, err := s.deps.Inventory.Load(r.Context())
	if err != nil {
		writeLoadError(w, err)
		return
	}

	id := chi.URLParam(r, "id")
	v, ok := batch.Find(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Car not found.")
		return
	}

	desc := v.Description
	if q.Get("translate") == "1" || q.Get("translate") == "true" {
		desc = s.deps.Translator.Translate(r.Context(), desc)
	}

	detail := CarDetail{
		Car:             carView(v, s.deps.Rates.Table(r.Context()), cur),
		DescriptionHTML: sanitize.Description(desc),
	}

	hist, err := s.deps.Store.PriceHistory(r.Context(), v.ListingKey(), 10)
	if err != nil {
		zap.L().Warn("api: price history", zap.String("car_id", v.ID), zap.Error(err))
	}
	detail.PriceHistory = hist

	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	batch, err := s.deps.Inventory.Load(r.Context())
	if err != nil {
		writeLoadError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, catalog.BuildFacets(batch.Vehicles))
}

// RatesResponse lists units of each currency per one reference unit.
type RatesResponse struct {
	Base       money.Currency             `json:"base"`
	Default    money.Currency             `json:"default"`
	Rates      map[money.Currency]float64 `json:"rates"`
	Currencies []money.Currency           `json:"currencies"`
	UpdatedAt  *time.Time                 `json:"updated_at,omitempty"`
}

func (s *Server) handleRates(w http.ResponseWriter, r *http.Request) {
	resp := RatesResponse{
		Base:       money.Reference,
		Default:    s.deps.Currency,
		Rates:      s.deps.Rates.Table(r.Context()),
		Currencies: money.AllCurrencies(),
	}
	if u, ok := s.deps.Rates.(interface{ UpdatedAt() time.Time }); ok {
		if t := u.UpdatedAt(); !t.IsZero() {
			resp.UpdatedAt = &t
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ContactRequest is the contact dialog submission.
type ContactRequest struct {
	CarID    string `json:"carId"`
	Currency string `json:"currency,omitempty"`
	InitData string `json:"initData,omitempty"`
	relay.Form
}

// ContactResponse reports the outcome. Failed submissions echo the form so
// the buyer can resend without retyping.
type ContactResponse struct {
	Success   bool        `json:"success"`
	ID        string      `json:"id,omitempty"`
	Error     string      `json:"error,omitempty"`
	Field     string      `json:"field,omitempty"`
	Retryable bool        `json:"retryable,omitempty"`
	Form      *relay.Form `json:"form,omitempty"`
}

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	var req ContactRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ContactResponse{Error: "Invalid request body."})
		return
	}

	form, err := relay.ValidateForm(req.Form)
	if err != nil {
		var fe *relay.FormError
		if errors.As(err, &fe) {
			writeJSON(w, http.StatusBadRequest, ContactResponse{Error: fe.Message, Field: fe.Field, Form: &form})
			return
		}
		writeJSON(w, http.StatusBadRequest, ContactResponse{Error: err.Error()})
		return
	}

	raw := r.Header.Get(InitDataHeader)
	if raw == "" {
		raw = req.InitData
	}
	identity, err := s.deps.Identity.Identify(raw)
	if err != nil {
		zap.L().Warn("api: rejected init data", zap.Error(err))
		writeJSON(w, http.StatusUnauthorized, ContactResponse{Error: "Could not verify the Telegram session. Reopen the app and try again."})
		return
	}

	cur := s.deps.Currency
	if c, ok := money.ParseCurrency(req.Currency); ok {
		cur = c
	}

	batch, err := s.deps.Inventory.Load(r.Context())
	if err != nil {
		writeLoadError(w, err)
		return
	}
	v, ok := batch.Find(strings.TrimSpace(req.CarID))
	if !ok {
		writeJSON(w, http.StatusNotFound, ContactResponse{Error: "Car not found.", Form: &form})
		return
	}

	inq := relay.BuildInquiry(v, identity, form, s.deps.Rates.Table(r.Context()), cur, s.nowFunc())
	record := model.StoredInquiry{
		ID:            uuid.NewString(),
		CarID:         v.ID,
		UserID:        inq.User.UserID,
		ContactMethod: inq.ContactMethod,
		Status:        model.InquirySent,
		CreatedAt:     inq.Timestamp,
	}

	submitErr := s.deps.Relay.Submit(r.Context(), inq)
	if submitErr != nil {
		record.Status = model.InquiryFailed
		record.Error = submitErr.Error()
	}
	s.audit(r.Context(), record)

	if submitErr != nil {
		msg := "Sending failed. Try again."
		var se *relay.SubmissionError
		if errors.As(submitErr, &se) {
			msg = se.Message
		}
		writeJSON(w, http.StatusBadGateway, ContactResponse{Error: msg, Retryable: true, Form: &form})
		return
	}

	writeJSON(w, http.StatusOK, ContactResponse{Success: true, ID: record.ID})
}

func (s *Server) audit(ctx context.Context, rec model.StoredInquiry) {
	if err := s.deps.Store.SaveInquiry(context.WithoutCancel(ctx), rec); err != nil {
		zap.L().Warn("api: save inquiry", zap.String("id", rec.ID), zap.Error(err))
	}
}

// RefreshResponse summarizes a forced reload.
type RefreshResponse struct {
	Vehicles  int       `json:"vehicles"`
	Skipped   int       `json:"skipped"`
	Dropped   int       `json:"dropped"`
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
	Empty     bool      `json:"empty"`
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.deps.Inventory.Invalidate()
	batch, err := s.deps.Inventory.Load(r.Context())
	if err != nil {
		writeLoadError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RefreshResponse{
		Vehicles:  len(batch.Vehicles),
		Skipped:   batch.Skipped,
		Dropped:   batch.Dropped,
		Source:    batch.Source,
		FetchedAt: batch.FetchedAt,
		Empty:     batch.Empty(),
	})
}

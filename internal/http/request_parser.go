package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"kakebo/internal/core"
	"kakebo/internal/ports"
)

const maxBodyBytes = 1 << 20

var (
	errEmptyBody  = errors.New("request body must not be empty")
	errTrailing   = errors.New("request body must contain a single JSON object")
	errInvalidID  = errors.New("invalid id")
	errBadRequest = errors.New("invalid request body")
)

// decodeJSON reads a single JSON value from the request body into dst.
// Unknown fields are ignored.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		if core.IsValidation(err) {
			return err
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if dec.More() {
		return errTrailing
	}
	return nil
}

// pathID returns the {id} route variable.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id < 1 {
		return 0, errInvalidID
	}
	return id, nil
}

func invalidQuery(field, message string) error {
	return &core.ValidationError{Field: field, Message: message}
}

// ParseTransactionFilter reads the optional list filters. Present but
// malformed values are rejected rather than ignored.
func ParseTransactionFilter(query url.Values) (ports.TransactionFilter, error) {
	var f ports.TransactionFilter

	if v := strings.TrimSpace(query.Get("start_date")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return f, invalidQuery("start_date", "must be a date in YYYY-MM-DD format")
		}
		f.StartDate = &d
	}
	if v := strings.TrimSpace(query.Get("end_date")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return f, invalidQuery("end_date", "must be a date in YYYY-MM-DD format")
		}
		f.EndDate = &d
	}
	if v := strings.TrimSpace(query.Get("category_id")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return f, invalidQuery("category_id", "must be an integer")
		}
		f.CategoryID = &id
	}
	if v := strings.TrimSpace(query.Get("transaction_type")); v != "" {
		tt, err := core.ParseTransactionType(v)
		if err != nil {
			return f, err
		}
		f.Type = &tt
	}
	return f, nil
}

// MonthParams holds the year and month of a report request.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams reads year and month, defaulting each to now. Values
// that are present must be integers; the month is not range checked.
func ParseMonthParams(query url.Values, now time.Time) (MonthParams, error) {
	params := MonthParams{Year: now.Year(), Month: int(now.Month())}

	if v, ok := queryValue(query, "year"); ok {
		y, err := strconv.Atoi(v)
		if err != nil {
			return params, invalidQuery("year", "must be an integer")
		}
		params.Year = y
	}
	if v, ok := queryValue(query, "month"); ok {
		m, err := strconv.Atoi(v)
		if err != nil {
			return params, invalidQuery("month", "must be an integer")
		}
		params.Month = m
	}
	return params, nil
}

// ParseYear reads the year, defaulting to now.
func ParseYear(query url.Values, now time.Time) (int, error) {
	v, ok := queryValue(query, "year")
	if !ok {
		return now.Year(), nil
	}
	y, err := strconv.Atoi(v)
	if err != nil {
		return 0, invalidQuery("year", "must be an integer")
	}
	return y, nil
}

// OptionalQuery returns a pointer to the raw value when key is present.
func OptionalQuery(query url.Values, key string) *string {
	if !query.Has(key) {
		return nil
	}
	v := query.Get(key)
	return &v
}

func queryValue(query url.Values, key string) (string, bool) {
	v := strings.TrimSpace(query.Get(key))
	return v, v != ""
}

// yenAmount accepts a JSON integer or a string such as "¥1,500".
type yenAmount int64

func (a *yenAmount) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return core.ErrInvalidAmount
		}
		v, err := core.ParseAmount(raw)
		if err != nil {
			return err
		}
		*a = yenAmount(v)
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return core.ErrInvalidAmount
	}
	*a = yenAmount(v)
	return nil
}

type categoryRequest struct {
	Name         string  `json:"name"`
	CategoryType string  `json:"category_type"`
	Icon         *string `json:"icon"`
	Color        *string `json:"color"`
}

func (req categoryRequest) toCategory() (core.Category, error) {
	ct, err := core.ParseCategoryType(req.CategoryType)
	if err != nil {
		return core.Category{}, err
	}
	return core.Category{
		Name:  req.Name,
		Type:  ct,
		Icon:  req.Icon,
		Color: req.Color,
	}, nil
}

type categoryPatchRequest struct {
	Name  *string `json:"name"`
	Icon  *string `json:"icon"`
	Color *string `json:"color"`
}

func (req categoryPatchRequest) toPatch() core.CategoryPatch {
	return core.CategoryPatch{Name: req.Name, Icon: req.Icon, Color: req.Color}
}

type transactionRequest struct {
	Amount          yenAmount `json:"amount"`
	CategoryID      int64     `json:"category_id"`
	Description     string    `json:"description"`
	TransactionDate string    `json:"transaction_date"`
	TransactionType string    `json:"transaction_type"`
}

func (req transactionRequest) toTransaction() (core.Transaction, error) {
	tt, err := core.ParseTransactionType(req.TransactionType)
	if err != nil {
		return core.Transaction{}, err
	}
	date, err := core.ParseDate(req.TransactionDate)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		Amount:      int64(req.Amount),
		CategoryID:  req.CategoryID,
		Description: req.Description,
		Date:        date,
		Type:        tt,
	}, nil
}

type transactionPatchRequest struct {
	Amount          *yenAmount `json:"amount"`
	CategoryID      *int64     `json:"category_id"`
	Description     *string    `json:"description"`
	TransactionDate *string    `json:"transaction_date"`
}

func (req transactionPatchRequest) toPatch() (core.TransactionPatch, error) {
	var p core.TransactionPatch
	if req.Amount != nil {
		v := int64(*req.Amount)
		p.Amount = &v
	}
	p.CategoryID = req.CategoryID
	p.Description = req.Description
	if req.TransactionDate != nil {
		d, err := core.ParseDate(*req.TransactionDate)
		if err != nil {
			return p, err
		}
		p.Date = &d
	}
	return p, nil
}

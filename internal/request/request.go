// Package request turns user input into a validated sizing request.
package request

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"SizingSignal/internal/model"
)

// Separator splits tickers and position values in text input.
const Separator = ";"

// Request is one batch of tickers with their position values.
type Request struct {
	Tickers []string      `validate:"required,min=1,unique,dive,required"`
	Values  []float64     `validate:"required,dive,gt=0"`
	Horizon model.Horizon `validate:"required,oneof=daily weekly monthly yearly"`
}

var validate = validator.New()

// New parses text input into a Request. It does not validate.
func New(tickers, values, horizon string) (Request, error) {
	vals, err := ParsePositions(values)
	if err != nil {
		return Request{}, err
	}
	h, err := model.ParseHorizon(horizon)
	if err != nil {
		return Request{}, err
	}
	return Request{Tickers: ParseTickers(tickers), Values: vals, Horizon: h}, nil
}

// ParseTickers splits on ";", trims and upper-cases, dropping empty entries.
func ParseTickers(s string) []string {
	var out []string
	for _, part := range strings.Split(s, Separator) {
		if t := strings.ToUpper(strings.TrimSpace(part)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// ParsePositions splits on ";" and parses each value. A comma is accepted as the
// decimal mark ("2500,5").
func ParsePositions(s string) ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(s, Separator) {
		p := strings.TrimSpace(part)
		if p == "" {
			continue
		}
		d, err := decimal.NewFromString(strings.ReplaceAll(p, ",", "."))
		if err != nil {
			return nil, fmt.Errorf("%w: position value %q: %v", model.ErrInvalidRequest, p, err)
		}
		out = append(out, d.InexactFloat64())
	}
	return out, nil
}

// Validate rejects the batch before any ticker is processed.
func (r Request) Validate() error {
	if len(r.Tickers) != len(r.Values) {
		return fmt.Errorf("%w: %d tickers but %d position values", model.ErrInvalidRequest, len(r.Tickers), len(r.Values))
	}
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s failed %q", model.ErrInvalidRequest, verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("%w: %v", model.ErrInvalidRequest, err)
	}
	return nil
}

package payment

import (
	"strconv"
	"strings"
	"time"

	"github.com/cassiomorais/checkout/internal/domain/errors"
)

const redacted = "[REDACTED]"

// Card carries raw card data from the caller to the gateway adapter.
// Fields are unexported so the value cannot be serialized or logged in
// plain form: every formatting and marshalling path yields a redacted view.
type Card struct {
	number     string
	cvc        string
	expMonth   int
	expYear    int
	holderName string
}

// CardData is the plain form of a card, returned only by Reveal.
type CardData struct {
	Number     string
	CVC        string
	ExpMonth   string
	ExpYear    string
	HolderName string
}

// NewCard validates raw card input. expYear accepts two or four digits.
func NewCard(number, cvc string, expMonth, expYear int, holderName string) (Card, error) {
	number = strings.ReplaceAll(strings.ReplaceAll(number, " ", ""), "-", "")
	if len(number) < 12 || len(number) > 19 || !allDigits(number) || !luhnValid(number) {
		return Card{}, errors.NewValidationError("card.number", "is not a valid card number")
	}
	if (len(cvc) != 3 && len(cvc) != 4) || !allDigits(cvc) {
		return Card{}, errors.NewValidationError("card.cvc", "must be 3 or 4 digits")
	}
	if expMonth < 1 || expMonth > 12 {
		return Card{}, errors.NewValidationError("card.exp_month", "must be between 1 and 12")
	}
	if expYear < 100 {
		expYear += 2000
	}
	now := time.Now()
	if expYear < now.Year() || (expYear == now.Year() && expMonth < int(now.Month())) {
		return Card{}, errors.NewValidationError("card.exp_year", "card has expired")
	}
	if strings.TrimSpace(holderName) == "" {
		return Card{}, errors.NewValidationError("card.holder_name", "cannot be empty")
	}

	return Card{
		number:     number,
		cvc:        cvc,
		expMonth:   expMonth,
		expYear:    expYear,
		holderName: strings.TrimSpace(holderName),
	}, nil
}

// Last4 is safe to display.
func (c Card) Last4() string {
	if len(c.number) < 4 {
		return ""
	}
	return c.number[len(c.number)-4:]
}

// Reveal exposes the raw card for the gateway wire call. Nothing else
// should call it.
func (c Card) Reveal() CardData {
	return CardData{
		Number:     c.number,
		CVC:        c.cvc,
		ExpMonth:   twoDigits(c.expMonth),
		ExpYear:    twoDigits(c.expYear % 100),
		HolderName: c.holderName,
	}
}

func (c Card) IsZero() bool { return c.number == "" }

func (c Card) String() string {
	if c.IsZero() {
		return "Card(" + redacted + ")"
	}
	return "Card(**** " + c.Last4() + ")"
}

func (c Card) GoString() string { return c.String() }

func (c Card) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(redacted)), nil
}

func (c Card) MarshalText() ([]byte, error) {
	return []byte(redacted), nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func luhnValid(number string) bool {
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		d := int(number[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

func twoDigits(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

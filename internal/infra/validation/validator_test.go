package validation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Eliezelg/villasaas-sub004/internal/app/handlers/booking"
	quotehandlers "github.com/Eliezelg/villasaas-sub004/internal/app/handlers/quote"
)

type feedForm struct {
	URL string `json:"url" validate:"required,feedurl"`
}

func TestValidCommandPasses(t *testing.T) {
	v := New()
	err := v.Validate(context.Background(), booking.RequestBookingCommand{
		TenantID: "t1", PropertyID: "p1",
		CheckIn: time.Now(), CheckOut: time.Now().Add(48 * time.Hour),
		Adults:          2,
		SelectedOptions: []quotehandlers.OptionSelection{{OptionID: "linen", Quantity: 1}},
	})
	assert.NoError(t, err)
}

func TestInvalidCommandListsFields(t *testing.T) {
	v := New()
	err := v.Validate(context.Background(), booking.RequestBookingCommand{
		PropertyID:      "p1",
		SelectedOptions: []quotehandlers.OptionSelection{{Quantity: -1}},
	})
	require.ErrorIs(t, err, ErrInvalidInput)
	var verr *Error
	require.ErrorAs(t, err, &verr)
	fields := map[string]string{}
	for _, f := range verr.Fields {
		fields[f.Field] = f.Rule
	}
	assert.Equal(t, "required", fields["TenantID"])
	assert.Equal(t, "required", fields["CheckIn"])
	assert.Equal(t, "min", fields["Adults"])
	assert.Equal(t, "required", fields["SelectedOptions[0].option_id"])
	assert.Equal(t, "min", fields["SelectedOptions[0].quantity"])
}

func TestFeedURLRule(t *testing.T) {
	v := New()
	assert.NoError(t, v.Validate(context.Background(), feedForm{URL: "webcal://example.com/a.ics"}))
	assert.NoError(t, v.Validate(context.Background(), &feedForm{URL: "https://example.com/a.ics"}))
	assert.ErrorIs(t, v.Validate(context.Background(), feedForm{URL: "ftp://example.com/a.ics"}), ErrInvalidInput)
	assert.ErrorIs(t, v.Validate(context.Background(), (*feedForm)(nil)), ErrInvalidInput)
}

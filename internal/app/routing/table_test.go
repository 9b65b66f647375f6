package routing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type quoteMsg struct{ nights int }

func (quoteMsg) Key() string { return "quote.get" }

type blockMsg struct{}

func (blockMsg) Key() string { return "block.create" }

func nightsRoute() Route[Keyed] {
	return Typed[Keyed]("quote.get", func(_ context.Context, m quoteMsg) (int, error) {
		return m.nights, nil
	})
}

func TestTableRoutesByKey(t *testing.T) {
	table := NewTable[Keyed]("queries")
	table.Add("quote.get", nightsRoute())
	table.Add("block.create", nightsRoute())

	tests := []struct {
		name    string
		msg     Keyed
		want    any
		wantErr error
	}{
		{name: "registered", msg: quoteMsg{nights: 3}, want: 3},
		{name: "unregistered", msg: missingMsg{}, wantErr: ErrUnrouted},
		{name: "key bound to another type", msg: blockMsg{}, wantErr: ErrWrongMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := table.Route(context.Background(), tt.msg)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, []string{"block.create", "quote.get"}, table.Keys())
}

type missingMsg struct{}

func (missingMsg) Key() string { return "booking.get" }

func TestTableRejectsDuplicateKeys(t *testing.T) {
	table := NewTable[Keyed]("commands")
	table.Add("quote.get", nightsRoute())
	assert.PanicsWithValue(t, "commands: duplicate registration for quote.get", func() {
		table.Add("quote.get", nightsRoute())
	})
	assert.PanicsWithValue(t, "commands: empty key registration", func() {
		table.Add("", nightsRoute())
	})
}

func TestResultNarrowsTheReply(t *testing.T) {
	n, err := Result[int]("quote.get", 4, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	n, err = Result[int]("quote.get", nil, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = Result[int]("quote.get", "four", nil)
	assert.ErrorIs(t, err, ErrResultType)
}

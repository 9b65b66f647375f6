package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/Eliezelg/villasaas-sub004/internal/app/uow"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/calendarsync"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/options"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/payments"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/pricing"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/promo"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/property"
)

// fixtureSet is the owner-authored catalog the engine reads but never edits.
// Records decode straight into domain types; keys match field names.
type fixtureSet struct {
	Properties    []property.Property             `json:"properties"`
	Periods       []pricing.PricingPeriod         `json:"pricing_periods"`
	Options       []options.BookingOption         `json:"booking_options"`
	PromoCodes    []promo.PromoCode               `json:"promo_codes"`
	Payments      []payments.PaymentConfiguration `json:"payment_configurations"`
	Subscriptions []calendarsync.Subscription     `json:"calendar_subscriptions"`
}

func (a *application) loadFixtures(ctx context.Context, path string, logger *slog.Logger) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	var set fixtureSet
	if err := json.Unmarshal(data, &set); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}
	err = a.storage.seed(ctx, func(ctx context.Context, unit uow.UnitOfWork) error {
		for i := range set.Properties {
			if err := unit.Properties().Save(ctx, &set.Properties[i]); err != nil {
				return fmt.Errorf("property %s: %w", set.Properties[i].ID, err)
			}
		}
		for i := range set.Periods {
			if err := unit.Periods().Save(ctx, &set.Periods[i]); err != nil {
				return fmt.Errorf("pricing period %s: %w", set.Periods[i].ID, err)
			}
		}
		for i := range set.Options {
			if err := unit.Options().Save(ctx, &set.Options[i]); err != nil {
				return fmt.Errorf("booking option %s: %w", set.Options[i].ID, err)
			}
		}
		for i := range set.PromoCodes {
			if err := unit.Promos().Save(ctx, &set.PromoCodes[i]); err != nil {
				return fmt.Errorf("promo code %s: %w", set.PromoCodes[i].Code, err)
			}
		}
		for i := range set.Payments {
			if err := unit.Payments().Save(ctx, &set.Payments[i]); err != nil {
				return fmt.Errorf("payment configuration %s: %w", set.Payments[i].TenantID, err)
			}
		}
		for i := range set.Subscriptions {
			if err := unit.Subscriptions().Save(ctx, &set.Subscriptions[i]); err != nil {
				return fmt.Errorf("calendar subscription %s: %w", set.Subscriptions[i].ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	logger.Info("fixtures loaded",
		"path", path,
		"properties", len(set.Properties),
		"pricing_periods", len(set.Periods),
		"booking_options", len(set.Options),
		"promo_codes", len(set.PromoCodes),
	)
	return nil
}

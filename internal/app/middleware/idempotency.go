package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Eliezelg/villasaas-sub004/internal/app/commands"
)

// IdempotentCommand carries a client-supplied key. A repeated key replays the
// first successful result instead of running the handler again.
type IdempotentCommand interface {
	commands.Command
	IdempotencyKey() string
	// ResultPrototype returns a pointer of the handler's result type.
	ResultPrototype() any
}

// IdempotencyRecord is a stored command result. Key is already scoped by
// command and tenant.
type IdempotencyRecord struct {
	Key      string
	Command  string
	Payload  []byte
	StoredAt time.Time
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string) (IdempotencyRecord, bool, error)
	Save(ctx context.Context, rec IdempotencyRecord) error
}

type ResultCodec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, out any) error
}

type JSONResultCodec struct{}

func (JSONResultCodec) Encode(v any) ([]byte, error)      { return json.Marshal(v) }
func (JSONResultCodec) Decode(data []byte, out any) error { return json.Unmarshal(data, out) }

var errMissingPrototype = errors.New("middleware: idempotent command requires result prototype")

// Idempotency stores successful results only. Failed commands may be retried
// with the same key, which keeps domain errors intact for the caller. Place it
// inside PropertyLock so concurrent retries of one key run one at a time.
func Idempotency(store IdempotencyStore, codec ResultCodec) CommandMiddleware {
	if store == nil {
		panic("middleware: idempotency store required")
	}
	if codec == nil {
		codec = JSONResultCodec{}
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			idCmd, ok := cmd.(IdempotentCommand)
			if !ok || idCmd.IdempotencyKey() == "" {
				return next.Dispatch(ctx, cmd)
			}
			key := scopedKey(ctx, idCmd)
			rec, found, err := store.Get(ctx, key)
			if err != nil {
				return nil, fmt.Errorf("middleware: idempotency lookup: %w", err)
			}
			if found {
				return replay(codec, idCmd, rec)
			}

			result, err := next.Dispatch(ctx, cmd)
			if err != nil {
				return nil, err
			}
			rec = IdempotencyRecord{Key: key, Command: cmd.Key(), StoredAt: time.Now().UTC()}
			if result != nil {
				if rec.Payload, err = codec.Encode(result); err != nil {
					return nil, err
				}
			}
			if err := store.Save(ctx, rec); err != nil {
				return nil, fmt.Errorf("middleware: idempotency save: %w", err)
			}
			return result, nil
		})
	}
}

func replay(codec ResultCodec, cmd IdempotentCommand, rec IdempotencyRecord) (any, error) {
	if len(rec.Payload) == 0 {
		return nil, nil
	}
	out := cmd.ResultPrototype()
	if out == nil {
		return nil, errMissingPrototype
	}
	if err := codec.Decode(rec.Payload, out); err != nil {
		return nil, fmt.Errorf("middleware: idempotency replay: %w", err)
	}
	return out, nil
}

// scopedKey keeps keys from different tenants and commands apart.
func scopedKey(ctx context.Context, cmd IdempotentCommand) string {
	tenantID := ""
	if scoped, ok := cmd.(TenantScoped); ok {
		tenantID = string(scoped.TenantScope())
	} else if caller, ok := TenantFromContext(ctx); ok {
		tenantID = string(caller)
	}
	return cmd.Key() + "|" + tenantID + "|" + cmd.IdempotencyKey()
}

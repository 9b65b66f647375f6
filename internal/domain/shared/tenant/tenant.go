package tenant

import (
	"errors"
	"strings"
)

var ErrTenantRequired = errors.New("tenant: id required")

// ID scopes every owner-authored entity to a single rental business.
type ID string

func (id ID) Validate() error {
	if strings.TrimSpace(string(id)) == "" {
		return ErrTenantRequired
	}
	return nil
}

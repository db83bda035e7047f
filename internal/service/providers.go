// Package service implements the vault's application logic over the ports.
package service

import (
	"fmt"

	"github.com/myriagon/credvault/internal/domain"
	"github.com/myriagon/credvault/internal/domain/credential"
	"github.com/myriagon/credvault/internal/port/provider"
)

// Providers resolves a vault service name to its provider adapter. One
// adapter can back several services (Google backs three).
type Providers struct {
	byService map[credential.Service]provider.Adapter
}

// NewProviders indexes adapters by every service they declare.
func NewProviders(adapters ...provider.Adapter) *Providers {
	p := &Providers{byService: make(map[credential.Service]provider.Adapter)}
	for _, a := range adapters {
		for _, svc := range a.Services() {
			p.byService[svc] = a
		}
	}
	return p
}

// ForService returns the adapter backing svc.
func (p *Providers) ForService(svc credential.Service) (provider.Adapter, error) {
	a, ok := p.byService[svc]
	if !ok {
		return nil, fmt.Errorf("%w: unknown service %q", domain.ErrValidation, svc)
	}
	return a, nil
}

// Known reports whether svc has an adapter.
func (p *Providers) Known(svc credential.Service) bool {
	_, ok := p.byService[svc]
	return ok
}

package lookup

import (
	"context"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-sales/internal/common"
	"github.com/noah-isme/toko-sales/internal/sale"
)

// SuggestionLimit caps the attribute suggestions returned per query.
const SuggestionLimit = 5

// ErrUnknownAttribute rejects autocomplete on keys outside AttributeKeys.
var ErrUnknownAttribute = common.NewValidationError("UnknownAttribute", "attribute does not support suggestions")

// Backend is the read side of the storefront backend.
type Backend interface {
	SearchProducts(ctx context.Context, q string) ([]sale.Product, error)
	SearchCustomers(ctx context.Context, q string) ([]Customer, error)
	GetCustomer(ctx context.Context, id string) (Customer, error)
	ListPendingBills(ctx context.Context, customerID string) ([]Bill, error)
	Attributes(ctx context.Context, key, q string) ([]Suggestion, error)
}

// Service answers product, customer and attribute lookups, caching search
// results briefly in Redis.
type Service struct {
	backend Backend
	cache   *Cache
	log     zerolog.Logger
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Backend Backend
	Cache   *Cache
	Logger  zerolog.Logger
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{backend: cfg.Backend, cache: cfg.Cache, log: cfg.Logger}
}

// Products searches products by name.
func (s *Service) Products(ctx context.Context, q string) ([]sale.Product, error) {
	key := s.cache.Key("products", q)
	var cached []sale.Product
	if ok, err := s.cache.GetJSON(ctx, key, &cached); err == nil && ok {
		return cached, nil
	} else if err != nil {
		s.log.Warn().Err(err).Msg("product cache read failed")
	}
	products, err := s.backend.SearchProducts(ctx, q)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, products)
	return products, nil
}

// Customers filters customers by name or phone. When the full customer list
// is cached it is filtered locally instead of asking the backend.
func (s *Service) Customers(ctx context.Context, q string) ([]Customer, error) {
	allKey := s.cache.Key("customers", "")
	var all []Customer
	if ok, err := s.cache.GetJSON(ctx, allKey, &all); err == nil && ok {
		return FilterCustomers(all, q), nil
	}
	q = strings.TrimSpace(q)
	if q == "" {
		list, err := s.backend.SearchCustomers(ctx, "")
		if err != nil {
			return nil, err
		}
		s.store(ctx, allKey, list)
		return list, nil
	}

	key := s.cache.Key("customers", q)
	var cached []Customer
	if ok, err := s.cache.GetJSON(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}
	list, err := s.backend.SearchCustomers(ctx, q)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, list)
	return list, nil
}

// Customer loads one customer. Balances change with every payment so the
// result is never cached.
func (s *Service) Customer(ctx context.Context, id string) (Customer, error) {
	return s.backend.GetCustomer(ctx, id)
}

// PendingBills lists the customer's bills that still carry a balance.
func (s *Service) PendingBills(ctx context.Context, customerID string) ([]Bill, error) {
	bills, err := s.backend.ListPendingBills(ctx, customerID)
	if err != nil {
		return nil, err
	}
	out := bills[:0]
	for _, b := range bills {
		if b.PendingAmount.IsPositive() {
			out = append(out, b)
		}
	}
	return out, nil
}

// Attributes returns up to SuggestionLimit suggestions for key. A blank query
// yields no suggestions.
func (s *Service) Attributes(ctx context.Context, key, q string) ([]Suggestion, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if !slices.Contains(AttributeKeys, key) {
		return nil, ErrUnknownAttribute
	}
	q = strings.TrimSpace(q)
	if q == "" {
		return []Suggestion{}, nil
	}
	cacheKey := s.cache.Key("attributes:"+key, q)
	var cached []Suggestion
	if ok, err := s.cache.GetJSON(ctx, cacheKey, &cached); err == nil && ok {
		return cached, nil
	}
	list, err := s.backend.Attributes(ctx, key, q)
	if err != nil {
		return nil, err
	}
	out := FilterSuggestions(list, q, SuggestionLimit)
	s.store(ctx, cacheKey, out)
	return out, nil
}

func (s *Service) store(ctx context.Context, key string, v any) {
	if err := s.cache.SetJSON(ctx, key, v); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("lookup cache write failed")
	}
}

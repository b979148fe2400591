package bonus

// lookup resolves a factor value at one scope.
type lookup func(t FactorType, key string) (float64, bool)

// Resolver resolves factors with child override → user override → default precedence.
type Resolver struct {
	strategies []lookup
}

// NewResolver builds the precedence chain for a scope.
func NewResolver(table FactorTable, scope Scope) *Resolver {
	var strategies []lookup
	if scope.ChildID != "" {
		strategies = append(strategies, overrideLookup(table.Overrides, func(o Override) bool {
			return o.ChildID == scope.ChildID && (o.UserID == "" || scope.UserID == "" || o.UserID == scope.UserID)
		}))
	}
	if scope.UserID != "" {
		strategies = append(strategies, overrideLookup(table.Overrides, func(o Override) bool {
			return o.ChildID == "" && o.UserID == scope.UserID
		}))
	}
	strategies = append(strategies, defaultLookup(table.Defaults))
	return &Resolver{strategies: strategies}
}

// Lookup returns the winning value for (t, key).
func (r *Resolver) Lookup(t FactorType, key string) (float64, bool) {
	return firstMatch(r.strategies, t, key)
}

// Require is Lookup that fails with a MissingFactorError.
func (r *Resolver) Require(t FactorType, key string) (float64, error) {
	if v, ok := r.Lookup(t, key); ok {
		return v, nil
	}
	return 0, &MissingFactorError{Type: t, Key: key}
}

// Optional is Lookup with a fallback value.
func (r *Resolver) Optional(t FactorType, key string, fallback float64) float64 {
	if v, ok := r.Lookup(t, key); ok {
		return v
	}
	return fallback
}

func firstMatch(strategies []lookup, t FactorType, key string) (float64, bool) {
	for _, s := range strategies {
		if v, ok := s(t, key); ok {
			return v, true
		}
	}
	return 0, false
}

func overrideLookup(overrides []Override, applies func(Override) bool) lookup {
	return func(t FactorType, key string) (float64, bool) {
		for _, o := range overrides {
			if o.Type == t && o.Key == key && applies(o) {
				return o.Value, true
			}
		}
		return 0, false
	}
}

func defaultLookup(defaults []Factor) lookup {
	return func(t FactorType, key string) (float64, bool) {
		for _, f := range defaults {
			if f.Type == t && f.Key == key {
				return f.Value, true
			}
		}
		return 0, false
	}
}

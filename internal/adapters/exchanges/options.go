package exchanges

// QuantityOptions tunes CalculateQuantityFromUSDT behavior.
type QuantityOptions struct {
	// SkipMinNotionalAdjust disables bumping an undersized order up to
	// the venue minimum notional; the calculation fails with
	// ErrOrderTooSmall instead.
	SkipMinNotionalAdjust bool

	// TakeProfitSplit is the number of take-profit chunks the resulting
	// quantity will later be divided into. Each chunk must satisfy the
	// venue minimum notional on its own, so the effective minimum scales
	// with the split count.
	TakeProfitSplit int
}

// QuantityOption customizes quantity calculation.
type QuantityOption func(*QuantityOptions)

// WithoutMinNotionalAdjust makes undersized orders fail instead of
// being bumped up to the venue minimum notional.
func WithoutMinNotionalAdjust() QuantityOption {
	return func(o *QuantityOptions) {
		o.SkipMinNotionalAdjust = true
	}
}

// WithTakeProfitSplit declares how many take-profit chunks the
// quantity will be split into.
func WithTakeProfitSplit(parts int) QuantityOption {
	return func(o *QuantityOptions) {
		if parts > 0 {
			o.TakeProfitSplit = parts
		}
	}
}

// NewQuantityOptions folds opts into a QuantityOptions value.
func NewQuantityOptions(opts ...QuantityOption) QuantityOptions {
	options := QuantityOptions{TakeProfitSplit: 1}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

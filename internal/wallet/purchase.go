package wallet

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sudo-init-do/dailymaze/internal/domain"
	"github.com/sudo-init-do/dailymaze/internal/metrics"
	"github.com/sudo-init-do/dailymaze/internal/store"
)

// MaxPurchaseUSD caps a single purchase.
var MaxPurchaseUSD = decimal.NewFromInt(1000)

// Methods are the accepted payment methods. Payments are already verified
// upstream; the reference only mimics a gateway id.
var Methods = map[string]bool{
	"card":   true,
	"paypal": true,
	"stripe": true,
	"crypto": true,
}

// Purchase converts usd into points at the configured rate and returns the
// updated account.
func (l *Ledger) Purchase(ctx context.Context, accountID string, usd decimal.Decimal, method string) (domain.Account, error) {
	if !usd.IsPositive() {
		return domain.Account{}, domain.Invalid("amount_usd", "must be positive")
	}
	if usd.GreaterThan(MaxPurchaseUSD) {
		return domain.Account{}, domain.Invalid("amount_usd", "must not exceed %s", MaxPurchaseUSD)
	}
	if !usd.Equal(usd.Round(2)) {
		return domain.Account{}, domain.Invalid("amount_usd", "must have at most two decimal places")
	}
	if !Methods[method] {
		return domain.Account{}, domain.Invalid("method", "unsupported payment method %q", method)
	}
	points := domain.USDToPoints(usd, l.rules.PointsPerDollar)
	if points <= 0 {
		return domain.Account{}, domain.Invalid("amount_usd", "buys no points")
	}

	reference := fmt.Sprintf("sim_%s_%s", method, uuid.NewString())
	var account domain.Account
	err := l.store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := l.creditPurchase(ctx, tx, accountID, points, usd, method, reference); err != nil {
			return err
		}
		if err := tx.RecordDeposit(ctx, accountID, usd, l.now().UTC()); err != nil {
			return err
		}
		var err error
		account, err = tx.Account(ctx, accountID)
		return err
	})
	if err != nil {
		return domain.Account{}, err
	}

	Committed(domain.TxCredit, domain.ReasonPurchase)
	metrics.PointsPurchased.Add(float64(points))
	l.log.Info("points purchased",
		"account_id", accountID,
		"amount_usd", usd.StringFixed(2),
		"points", points,
		"method", method,
		"reference", reference,
	)
	return account, nil
}

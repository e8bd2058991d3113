package reconciliation

import (
	customError "github.com/naimprince010-ship-it/isp-billing/pkg/errors"
	"github.com/naimprince010-ship-it/isp-billing/pkg/money"
)

// DebitForNewSubscriber returns the reseller balance left after paying for a new
// subscriber's package. The reseller's balance limit is not consulted here.
func DebitForNewSubscriber(balance, price money.Amount) (money.Amount, error) {
	if !price.IsPositive() {
		return money.Zero(), customError.WrapValidation("package price must be positive")
	}
	if balance.LessThan(price) {
		return money.Zero(), customError.WrapInsufficientBalance(balance.String(), price.String())
	}
	return balance.Sub(price), nil
}

// Package accounting holds the pure double-entry calculations shared by the journal
// service, the running-balance rebuild and the integrity checker.
package accounting

import (
	"fmt"

	"github.com/SscSPs/mma_ledger/internal/core/domain"
	"github.com/SscSPs/mma_ledger/internal/utils/moneymath"
	"github.com/shopspring/decimal"
)

// Line is one journal line as seen by the calculator. Amount is in the account
// currency; ExchangeRate (nil means 1) converts it to the journal currency.
type Line struct {
	AccountID    string
	Amount       decimal.Decimal
	Type         domain.TransactionType
	ExchangeRate *decimal.Decimal
}

// LinesFromTransactions adapts stored transactions to calculator lines.
func LinesFromTransactions(txns []domain.Transaction) []Line {
	lines := make([]Line, 0, len(txns))
	for _, txn := range txns {
		lines = append(lines, Line{
			AccountID:    txn.AccountID,
			Amount:       txn.Amount,
			Type:         txn.TransactionType,
			ExchangeRate: txn.ExchangeRate,
		})
	}
	return lines
}

// JournalAmount converts the line amount into the journal currency.
func JournalAmount(line Line, precision int32) decimal.Decimal {
	if line.ExchangeRate == nil {
		return moneymath.RoundToPrecision(line.Amount, precision)
	}
	return moneymath.SafeMultiply(line.Amount, *line.ExchangeRate, precision)
}

func total(lines []Line, txnType domain.TransactionType, precision int32) decimal.Decimal {
	amounts := make([]decimal.Decimal, 0, len(lines))
	for _, l := range lines {
		if l.Type == txnType {
			amounts = append(amounts, JournalAmount(l, precision))
		}
	}
	return moneymath.Sum(amounts, precision)
}

// TotalDebits sums debit lines in the journal currency.
func TotalDebits(lines []Line, precision int32) decimal.Decimal {
	return total(lines, domain.Debit, precision)
}

// TotalCredits sums credit lines in the journal currency.
func TotalCredits(lines []Line, precision int32) decimal.Decimal {
	return total(lines, domain.Credit, precision)
}

// Imbalance is debits minus credits. Positive means the journal needs more credits.
func Imbalance(lines []Line, precision int32) decimal.Decimal {
	return moneymath.SafeSubtract(TotalDebits(lines, precision), TotalCredits(lines, precision), precision)
}

// IsBalanced reports whether debits equal credits within the currency epsilon.
func IsBalanced(lines []Line, precision int32) bool {
	return moneymath.AmountsAreEqual(TotalDebits(lines, precision), TotalCredits(lines, precision), precision)
}

// Validate returns every shape and balance problem found in lines. An empty result
// means the lines may be written.
func Validate(lines []Line, precision int32) []string {
	var problems []string
	if len(lines) < 2 {
		problems = append(problems, "journal must have at least two transaction lines")
	}

	for i, l := range lines {
		switch {
		case l.Amount.IsZero():
			problems = append(problems, fmt.Sprintf("line %d has a zero amount", i+1))
		case l.Amount.IsNegative():
			problems = append(problems, fmt.Sprintf("line %d has a negative amount %s; amounts are positive magnitudes", i+1, l.Amount))
		}
		if !l.Type.IsValid() {
			problems = append(problems, fmt.Sprintf("line %d has invalid transaction type '%s'", i+1, l.Type))
		}
		if l.ExchangeRate != nil && !l.ExchangeRate.IsPositive() {
			problems = append(problems, fmt.Sprintf("line %d has a non-positive exchange rate", i+1))
		}
	}

	if len(lines) > 0 && !IsBalanced(lines, precision) {
		debits := TotalDebits(lines, precision)
		credits := TotalCredits(lines, precision)
		problems = append(problems, fmt.Sprintf("journal is unbalanced by %s (debits %s, credits %s)",
			moneymath.Format(Imbalance(lines, precision).Abs(), precision),
			moneymath.Format(debits, precision),
			moneymath.Format(credits, precision)))
	}
	return problems
}

// DistinctAccounts returns the account IDs referenced by lines in first-seen order.
func DistinctAccounts(lines []Line) []string {
	seen := make(map[string]struct{}, len(lines))
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		if _, ok := seen[l.AccountID]; ok {
			continue
		}
		seen[l.AccountID] = struct{}{}
		ids = append(ids, l.AccountID)
	}
	return ids
}

// SignedAmount applies the account's sign convention: +amount when txnType is the
// account's increase side, -amount otherwise.
func SignedAmount(amount decimal.Decimal, txnType domain.TransactionType, accountType domain.AccountType) (decimal.Decimal, error) {
	side, err := accountType.IncreaseSide()
	if err != nil {
		return decimal.Zero, err
	}
	if txnType == side {
		return amount, nil
	}
	return amount.Neg(), nil
}

// AccumulateBalance walks txns in order and returns the running balance after each one.
func AccumulateBalance(txns []domain.Transaction, accountType domain.AccountType, precision int32) ([]decimal.Decimal, error) {
	running := make([]decimal.Decimal, len(txns))
	balance := decimal.Zero
	for i, txn := range txns {
		signed, err := SignedAmount(txn.Amount, txn.TransactionType, accountType)
		if err != nil {
			return nil, fmt.Errorf("transaction %s: %w", txn.TransactionID, err)
		}
		balance = moneymath.SafeAdd(balance, signed, precision)
		running[i] = balance
	}
	return running, nil
}

package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/veritriariyanto/Backend-TallyPOS/internal/repository"
)

// Transaction codes look like TRX-20260830-00042: a day-scoped sequence,
// zero-padded to five digits, strictly increasing within a UTC calendar day.
const txCodePrefix = "TRX"

func txCodeDayPrefix(date time.Time) string {
	return fmt.Sprintf("%s-%s-", txCodePrefix, date.UTC().Format("20060102"))
}

func formatTxCode(dayPrefix string, sequence int) string {
	return fmt.Sprintf("%s%05d", dayPrefix, sequence)
}

// parseTxCodeSequence extracts the numeric suffix of a transaction code.
func parseTxCodeSequence(code string) (int, error) {
	parts := strings.Split(code, "-")
	if len(parts) != 3 {
		return 0, fmt.Errorf("malformed transaction code %q", code)
	}
	sequence, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0, fmt.Errorf("malformed transaction code %q: %w", code, err)
	}
	return sequence, nil
}

// TransactionCodeGenerator issues the next day-scoped sale code. Two
// concurrent sales can read the same last code before either commits; the
// unique index on transaction_code catches that, and the sale processor
// regenerates and retries once before surfacing a conflict.
type TransactionCodeGenerator interface {
	NextCode(date time.Time) (string, error)
}

type txCodeGenerator struct {
	txRepo repository.TransactionRepository
}

func NewTransactionCodeGenerator(txRepo repository.TransactionRepository) TransactionCodeGenerator {
	return &txCodeGenerator{txRepo: txRepo}
}

func (g *txCodeGenerator) NextCode(date time.Time) (string, error) {
	dayPrefix := txCodeDayPrefix(date)

	last, err := g.txRepo.FindLastCodeWithPrefix(dayPrefix)
	if err != nil {
		return "", err
	}

	sequence := 1
	if last != "" {
		lastSequence, err := parseTxCodeSequence(last)
		if err != nil {
			return "", err
		}
		sequence = lastSequence + 1
	}
	return formatTxCode(dayPrefix, sequence), nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/event-seat-booking/internal/store"
)

const (
	ticketCodePrefix   = "TEDX-"
	ticketCodeLength   = 6
	ticketCodeAttempts = 5
)

var (
	ticketCodePattern = regexp.MustCompile(`^TEDX-[A-Z0-9]{6}$`)

	errTicketCodeExhausted = errors.New("could not generate a unique ticket code")
)

// newTicketCode returns "TEDX-" followed by the first six hex digits
// of a random UUID, upper-cased.
func newTicketCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return ticketCodePrefix + strings.ToUpper(raw[:ticketCodeLength])
}

// normalizeTicketCode trims and upper-cases user input and reports
// whether it has the ticket code shape.
func normalizeTicketCode(code string) (string, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	return code, ticketCodePattern.MatchString(code)
}

// issueTicketCode draws codes until one is unused. The unique index on
// bookings.ticket_code still rejects a code committed concurrently by
// another event's transaction.
func issueTicketCode(ctx context.Context, tx store.Tx, gen func() string) (string, error) {
	for i := 0; i < ticketCodeAttempts; i++ {
		code := gen()
		exists, err := tx.TicketCodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check ticket code: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", errTicketCodeExhausted
}

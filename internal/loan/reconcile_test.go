package loan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func openLoan(bookID int64) Loan {
	return Loan{ID: 1, BookID: bookID, CustomerID: 1, BorrowedDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func closedLoan(bookID int64) Loan {
	l := openLoan(bookID)
	returned := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	l.ReturnedDate = &returned
	return l
}

func TestPlanEdit(t *testing.T) {
	tests := []struct {
		name string
		orig Loan
		next Loan
		want []change
	}{
		{"same book returned", openLoan(1), closedLoan(1), []change{{bookID: 1, effect: effectFree}}},
		{"same book reopened", closedLoan(1), openLoan(1), []change{{bookID: 1, effect: effectHold}}},
		{"same book stays open", openLoan(1), openLoan(1), nil},
		{"same book stays closed", closedLoan(1), closedLoan(1), nil},
		{"moved open loan", openLoan(1), openLoan(2), []change{{bookID: 1, effect: effectFree}, {bookID: 2, effect: effectHold}}},
		{"moved and returned", openLoan(1), closedLoan(2), []change{{bookID: 1, effect: effectFree}}},
		{"moved and reopened", closedLoan(1), openLoan(2), []change{{bookID: 2, effect: effectHold}}},
		{"moved closed loan", closedLoan(1), closedLoan(2), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, planEdit(tt.orig, tt.next))
		})
	}
}

func TestEditRules_CoverEveryCase(t *testing.T) {
	for _, same := range []bool{true, false} {
		for _, was := range []bool{true, false} {
			for _, is := range []bool{true, false} {
				_, ok := editRules[editCase{sameBook: same, wasOpen: was, isOpen: is}]
				assert.True(t, ok, "missing rule for same=%v was=%v is=%v", same, was, is)
			}
		}
	}
}

func TestLockOrder(t *testing.T) {
	assert.Equal(t, []int64{3, 7}, lockOrder(7, 3))
	assert.Equal(t, []int64{4}, lockOrder(4, 4))
	assert.Equal(t, []int64{1, 2, 9}, lockOrder(9, 1, 2, 1))
}

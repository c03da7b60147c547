package loan

import "slices"

// effect is what an edit does to one book's availability flag.
type effect int

const (
	effectNone effect = iota
	// effectFree marks the book available again.
	effectFree
	// effectHold marks the book lent out. The book must be available first.
	effectHold
)

// editCase classifies an edit by whether the book changes and whether the
// loan is open before and after it.
type editCase struct {
	sameBook bool
	wasOpen  bool
	isOpen   bool
}

// editRule gives the effect on the original book and on the new book. When
// the book does not change only next applies.
type editRule struct {
	orig effect
	next effect
}

// editRules lists every combination explicitly.
//
// A different book that ends up closed gets effectNone: this loan never held
// it, so its flag already reflects whatever other loan may hold it.
var editRules = map[editCase]editRule{
	{sameBook: true, wasOpen: true, isOpen: false}:  {next: effectFree},
	{sameBook: true, wasOpen: false, isOpen: true}:  {next: effectHold},
	{sameBook: true, wasOpen: true, isOpen: true}:   {},
	{sameBook: true, wasOpen: false, isOpen: false}: {},

	{sameBook: false, wasOpen: true, isOpen: true}:   {orig: effectFree, next: effectHold},
	{sameBook: false, wasOpen: true, isOpen: false}:  {orig: effectFree},
	{sameBook: false, wasOpen: false, isOpen: true}:  {next: effectHold},
	{sameBook: false, wasOpen: false, isOpen: false}: {},
}

// change is one availability write planned for an edit.
type change struct {
	bookID int64
	effect effect
}

func (c change) available() bool {
	return c.effect == effectFree
}

// planEdit returns the availability writes needed to move orig to next.
func planEdit(orig, next Loan) []change {
	c := editCase{
		sameBook: orig.BookID == next.BookID,
		wasOpen:  orig.IsOpen(),
		isOpen:   next.IsOpen(),
	}
	rule := editRules[c]

	var changes []change
	if !c.sameBook && rule.orig != effectNone {
		changes = append(changes, change{bookID: orig.BookID, effect: rule.orig})
	}
	if rule.next != effectNone {
		changes = append(changes, change{bookID: next.BookID, effect: rule.next})
	}
	return changes
}

// lockOrder returns the distinct book ids in ascending order. Rows are
// always locked in this order so concurrent edits cannot deadlock.
func lockOrder(ids ...int64) []int64 {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}

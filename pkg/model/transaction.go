package model

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// ErrTransactionClosed is returned when a transaction is committed or
// rolled back twice, or out of nesting order.
var ErrTransactionClosed = errors.New("model: transaction is not the innermost open transaction")

// Transaction is a unit of work on a Document. Transactions nest; each
// one records the floor state at Begin so that Rollback can restore it.
type Transaction struct {
	doc  *Document
	name string

	floors     map[ElementID]*Floor
	floorOrder []ElementID
}

// Begin opens a transaction. It must be closed with Commit or Rollback.
func (d *Document) Begin(name string) *Transaction {
	d.mu.Lock()
	defer d.mu.Unlock()

	snap := make(map[ElementID]*Floor, len(d.floors))
	for id, f := range d.floors {
		snap[id] = f.Clone()
	}
	t := &Transaction{
		doc:        d,
		name:       name,
		floors:     snap,
		floorOrder: slices.Clone(d.floorOrder),
	}
	d.txns = append(d.txns, t)
	return t
}

// Name returns the name given to Begin.
func (t *Transaction) Name() string {
	return t.name
}

// Commit keeps every change made since Begin.
func (t *Transaction) Commit() error {
	d := t.doc
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.popTxn(t); err != nil {
		return err
	}
	return nil
}

// Rollback discards every floor change made since Begin.
func (t *Transaction) Rollback() error {
	d := t.doc
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.popTxn(t); err != nil {
		return err
	}
	d.floors = maps.Clone(t.floors)
	d.floorOrder = slices.Clone(t.floorOrder)
	return nil
}

// popTxn removes t from the top of the stack. Caller holds d.mu.
func (d *Document) popTxn(t *Transaction) error {
	n := len(d.txns)
	if n == 0 || d.txns[n-1] != t {
		return fmt.Errorf("%w: %q", ErrTransactionClosed, t.name)
	}
	d.txns = d.txns[:n-1]
	return nil
}

// InTransaction reports whether a transaction is open.
func (d *Document) InTransaction() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.txns) > 0
}

// requireTxn fails when no transaction is open. Caller holds d.mu.
func (d *Document) requireTxn() error {
	if len(d.txns) == 0 {
		return ErrNoTransaction
	}
	return nil
}

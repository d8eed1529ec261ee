package domain

import "github.com/shopspring/decimal"

// Allocation is an immutable slice of the portfolio attributed to one
// symbol: its fraction of the whole, its USD value and its BTC-denominated
// value. Allocations are produced fresh by every computation and never
// mutated in place.
type Allocation struct {
	Symbol   string
	Pct      decimal.Decimal
	ValueUsd decimal.Decimal
	ValueBtc decimal.Decimal
}

// AllocationSet is an insertion-ordered collection of allocations keyed by
// symbol. Iteration order (Symbols) is part of the contract: report entries
// and trades are emitted in it.
type AllocationSet struct {
	bySymbol map[string]Allocation
	order    []string
}

// NewAllocationSet creates an empty allocation set.
func NewAllocationSet() *AllocationSet {
	return &AllocationSet{bySymbol: make(map[string]Allocation)}
}

// Set inserts or replaces the allocation for its symbol. A replaced symbol
// keeps its original position.
func (s *AllocationSet) Set(allocation Allocation) {
	if _, ok := s.bySymbol[allocation.Symbol]; !ok {
		s.order = append(s.order, allocation.Symbol)
	}
	s.bySymbol[allocation.Symbol] = allocation
}

// Get returns the allocation for a symbol.
func (s *AllocationSet) Get(symbol string) (Allocation, bool) {
	allocation, ok := s.bySymbol[symbol]
	return allocation, ok
}

// Contains reports whether the set holds an allocation for the symbol.
func (s *AllocationSet) Contains(symbol string) bool {
	_, ok := s.bySymbol[symbol]
	return ok
}

// Symbols returns the symbols in insertion order.
func (s *AllocationSet) Symbols() []string {
	symbols := make([]string, len(s.order))
	copy(symbols, s.order)
	return symbols
}

// Len returns the number of allocations in the set.
func (s *AllocationSet) Len() int {
	return len(s.order)
}

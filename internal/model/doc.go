// Package model defines the shared domain types: charge requests,
// relay notification events, extracted observations, ledger records,
// and run outcomes.
package model

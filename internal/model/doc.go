// Package model defines shared data types for the trade feed client.
//
// Conventions:
//   - Addresses (pools, tokens, counterparties): lowercase hex strings
//   - Raw on-chain amounts: decimal strings in base token units (wei-style)
//   - Normalized amounts: float64 scaled by token decimals
//   - Raw timestamps: int64, seconds or milliseconds (the backend emits both)
package model

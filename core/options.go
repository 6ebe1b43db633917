// Copyright 2025 The nethermind Authors
// This file is part of the nethermind library.
//
// The nethermind library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The nethermind library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the nethermind library. If not, see <http://www.gnu.org/licenses/>.

package core

// ProcessingOptions is a bit set controlling how a batch of suggested blocks
// is processed. Flags are independent and combinable.
type ProcessingOptions uint32

const (
	// ReadOnlyChain rolls the batch back unconditionally after processing;
	// the returned blocks are the only output.
	ReadOnlyChain ProcessingOptions = 1 << iota

	// NoValidation skips the post-execution validation of each block.
	NoValidation

	// StoreReceipts persists every receipt to the receipt store, stamped
	// with its containing block's hash.
	StoreReceipts
)

// Has reports whether the flag is set.
func (o ProcessingOptions) Has(flag ProcessingOptions) bool {
	return o&flag != 0
}

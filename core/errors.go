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

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ErrInvalidTransaction marks a transaction that cannot enter execution at
// all, such as a nil entry in a block's transaction list.
var ErrInvalidTransaction = errors.New("invalid transaction")

// InvalidBlockError is returned when a processed block fails post-execution
// validation against its suggested block. It carries enough identity for the
// caller to discard the branch.
type InvalidBlockError struct {
	Number uint64
	Hash   common.Hash
}

func (e *InvalidBlockError) Error() string {
	return fmt.Sprintf("invalid block #%d (%s)", e.Number, e.Hash.TerminalString())
}

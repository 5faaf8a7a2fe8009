// Copyright (C) 2026 The Corestream Authors.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package agg

import "github.com/dchest/siphash"

// hashKeys are fixed across a process lifetime so repeated runs of a
// test hash identically; a real deployment would randomize these per
// node, but determinism matters more here than hash-flooding
// resistance at this layer.
const (
	hashK0 = 0x0123456789abcdef
	hashK1 = 0xfedcba9876543210
)

// HashKey hashes a serialized window key the way vm.bchashvaluego
// hashes row values: SipHash over the raw bytes. Keyed
// pre-aggregation's chained hash map uses the low 64 bits as the
// bucket hash.
func HashKey(key []byte) uint64 {
	return siphash.Hash(hashK0, hashK1, key)
}

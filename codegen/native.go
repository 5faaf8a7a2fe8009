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

package codegen

import "errors"

// ErrNativeUnavailable is returned by LowerNative: this module carries
// the hand-off point where a code generator lowers SSA IR to native
// code, without an actual machine-code back end. A real implementation
// would emit architecture-specific code here (as the vm package does
// for its vectorized bytecode) and fall back to the interpreter only
// when that lowering fails; every Program in this module always runs
// through Run*, the documented fallback path.
var ErrNativeUnavailable = errors.New("codegen: native lowering not implemented, use the interpreter")

// LowerNative is the native back-end hand-off point. It always fails
// today; callers should treat this as "fall back to Compile + Run*" —
// the interpreter fallback is always available.
func LowerNative(p *Program) error {
	return ErrNativeUnavailable
}

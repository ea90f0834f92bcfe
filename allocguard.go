package manifold

import (
	"fmt"
	"runtime"
)

// DebugAllocChecks enables runtime enforcement of the no-allocation contract
// around the innermost numeric kernels. Off by default: the guard is then a
// pair of branch-predicted no-ops. Turn it on in single-goroutine debug runs
// and tests only, since the malloc counter it samples is process-global and
// concurrent allocations elsewhere would trip it spuriously.
var DebugAllocChecks bool

// allocGuard is a scoped enter/exit check that the code between beginNoAlloc
// and end performed no heap allocations. Hot matvec loops run under it so
// accidental heap traffic fails loudly in debug runs instead of silently
// degrading the solver's asymptotics.
type allocGuard struct {
	enabled bool
	mallocs uint64
}

// beginNoAlloc opens a no-allocation scope.
func beginNoAlloc() allocGuard {
	if !DebugAllocChecks {
		return allocGuard{}
	}
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return allocGuard{enabled: true, mallocs: ms.Mallocs}
}

// end closes the scope, panicking if anything allocated inside it.
func (g allocGuard) end() {
	if !g.enabled {
		return
	}
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	if ms.Mallocs > g.mallocs {
		panic(fmt.Sprintf("allocation inside no-alloc numeric kernel: %d mallocs", ms.Mallocs-g.mallocs))
	}
}

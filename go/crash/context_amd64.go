package crash

import (
	"unsafe"

	"github.com/lunixbochs/hookcorn/go/models"
)

func snapshotOf(ep *exceptionPointers) models.Snapshot {
	ctx := (*contextAMD64)(unsafe.Pointer(ep.ContextRecord))
	return ctx.snapshot(ep.ExceptionRecord.ExceptionCode)
}

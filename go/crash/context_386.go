package crash

import (
	"unsafe"

	"github.com/lunixbochs/hookcorn/go/models"
)

func snapshotOf(ep *exceptionPointers) models.Snapshot {
	ctx := (*context386)(unsafe.Pointer(ep.ContextRecord))
	return ctx.snapshot(ep.ExceptionRecord.ExceptionCode)
}

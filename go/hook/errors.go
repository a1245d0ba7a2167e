package hook

import "github.com/pkg/errors"

var (
	// ErrAlreadyHooked means the target is hooked with a different detour
	ErrAlreadyHooked = errors.New("target already hooked")
	// ErrOverlap means the patch would overlap another hook's patched bytes
	ErrOverlap = errors.New("hook overlaps an existing hook")
	// ErrShortPrologue means not enough whole instructions precede the end
	// of the function or readable memory to fit the jump
	ErrShortPrologue = errors.New("prologue too short for jump")
	// ErrNotRelocatable means a prologue instruction cannot run from the
	// trampoline
	ErrNotRelocatable = errors.New("prologue instruction not relocatable")
	// ErrHookNotFound means no hook is recorded for the target
	ErrHookNotFound = errors.New("hook not found")
	// ErrSymbolNotFound means a Ref did not resolve
	ErrSymbolNotFound = errors.New("symbol not found")
)

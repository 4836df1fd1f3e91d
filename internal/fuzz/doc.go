// Package fuzztests houses Go fuzz harnesses for the assembler and the C
// boundary. The goal is to smoke test robustness: no panics, no hangs, no
// leaked buffers and no diagnostics pointing outside the source.
//
// Назначение: прогонять произвольные байты через asm и boundary.
//
// Не делает: генерацию корпусов, запись файлов, выполнение CLI.
//
// Зависимости: internal/asm, internal/boundary, internal/cmem,
// internal/testkit.

package fuzztests

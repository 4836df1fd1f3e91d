package testkit

import (
	"fmt"

	"fortio.org/safecast"

	"asmbridge/internal/diag"
	"asmbridge/internal/source"
)

// CheckDiagnosticSpans verifies that every diagnostic points into sf:
// 1) primary and note spans reference sf.ID
// 2) Start <= End <= len(sf.Content)
// 3) notes satisfy the same rules as primaries
func CheckDiagnosticSpans(diags []diag.Diagnostic, sf *source.File) error {
	if sf == nil {
		return fmt.Errorf("nil file")
	}
	lenContent, err := safecast.Conv[uint32](len(sf.Content))
	if err != nil {
		return fmt.Errorf("len content overflow: %w", err)
	}
	check := func(what string, sp source.Span) error {
		if sp.File != sf.ID {
			return fmt.Errorf("%s span file mismatch: got=%d want=%d", what, sp.File, sf.ID)
		}
		if sp.End < sp.Start {
			return fmt.Errorf("%s span is inverted: %v", what, sp)
		}
		if sp.End > lenContent {
			return fmt.Errorf("%s span %v ends beyond content (%d bytes)", what, sp, lenContent)
		}
		return nil
	}

	for i, d := range diags {
		if err := check(fmt.Sprintf("diagnostic #%d (%s)", i, d.Code.ID()), d.Primary); err != nil {
			return err
		}
		for j, n := range d.Notes {
			if err := check(fmt.Sprintf("note #%d of diagnostic #%d", j, i), n.Span); err != nil {
				return err
			}
		}
	}
	return nil
}

// CheckNonEmptyErrors verifies that error diagnostics highlight at least one
// byte unless they point at the very end of the file.
func CheckNonEmptyErrors(diags []diag.Diagnostic, sf *source.File) error {
	end := uint32(len(sf.Content)) // #nosec G115 -- checked by CheckDiagnosticSpans
	for i, d := range diags {
		if d.Severity < diag.SevError {
			continue
		}
		if d.Primary.Empty() && d.Primary.Start != end {
			return fmt.Errorf("error #%d (%s) has an empty span %v", i, d.Code.ID(), d.Primary)
		}
	}
	return nil
}

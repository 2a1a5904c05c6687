package inferior

import "testing"

func TestCatalogRoundTripsByIDNameAndDwarf(t *testing.T) {
	for _, e := range Catalog {
		e := e

		got, err := ByID(e.ID)
		if err != nil {
			t.Fatalf("ByID(%d): %v", e.ID, err)
		}
		if got != &e && *got != e {
			t.Errorf("ByID(%d) = %+v, want %+v", e.ID, *got, e)
		}

		got, err = ByName(e.Name)
		if err != nil {
			t.Fatalf("ByName(%q): %v", e.Name, err)
		}
		if *got != e {
			t.Errorf("ByName(%q) = %+v, want %+v", e.Name, *got, e)
		}

		if e.DwarfID >= 0 {
			got, err = ByDwarf(e.DwarfID)
			if err != nil {
				t.Fatalf("ByDwarf(%d): %v", e.DwarfID, err)
			}
			if *got != e {
				t.Errorf("ByDwarf(%d) = %+v, want %+v", e.DwarfID, *got, e)
			}
		}
	}
}

func TestCatalogNamesAreUnique(t *testing.T) {
	seen := make(map[string]bool, len(Catalog))
	for _, e := range Catalog {
		if seen[e.Name] {
			t.Errorf("duplicate register name %q", e.Name)
		}
		seen[e.Name] = true
	}
}

func TestCatalogLookupMissReturnsNotFound(t *testing.T) {
	if _, err := ByName("not-a-register"); err == nil {
		t.Error("ByName(unknown) = nil error, want NotFound")
	}
	if _, err := ByID(RegisterID(len(Catalog) + 1000)); err == nil {
		t.Error("ByID(out of range) = nil error, want NotFound")
	}
	if _, err := ByDwarf(-999); err == nil {
		t.Error("ByDwarf(-999) = nil error, want NotFound")
	}
}

func TestSubRegisterAliasesShareParentOffset(t *testing.T) {
	rax, err := ByName("rax")
	if err != nil {
		t.Fatalf("ByName(rax): %v", err)
	}
	al, err := ByName("al")
	if err != nil {
		t.Fatalf("ByName(al): %v", err)
	}
	ah, err := ByName("ah")
	if err != nil {
		t.Fatalf("ByName(ah): %v", err)
	}

	if al.Offset != rax.Offset {
		t.Errorf("al.Offset = %d, want %d (rax.Offset)", al.Offset, rax.Offset)
	}
	if ah.Offset != rax.Offset+1 {
		t.Errorf("ah.Offset = %d, want %d (rax.Offset+1)", ah.Offset, rax.Offset+1)
	}
}

func TestFPRFieldsLieInsideFPRBlock(t *testing.T) {
	for _, e := range Catalog {
		if e.Type != FPR {
			continue
		}
		if e.Offset < fprBase || e.Offset+e.Size > fprBase+fprBlockSize {
			t.Errorf("FPR register %q at offset %d size %d falls outside FPR block [%d,%d)",
				e.Name, e.Offset, e.Size, fprBase, fprBase+fprBlockSize)
		}
	}
}

func TestDebugRegistersLieInsideDRBlock(t *testing.T) {
	for _, e := range Catalog {
		if e.Type != DR {
			continue
		}
		if e.Offset < drBase || e.Offset+e.Size > BufferSize {
			t.Errorf("debug register %q at offset %d falls outside DR block", e.Name, e.Offset)
		}
	}
}

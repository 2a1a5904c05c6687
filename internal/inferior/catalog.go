// catalog.go - static x86-64 register descriptor table and lookups
//
// Offsets mirror struct user from <sys/user.h> on x86-64 Linux: the GPR
// block is golang.org/x/sys/unix.PtraceRegs (27 qwords, 216 bytes), the
// FPR/SSE block is unix.PtraceFpRegs (the fxsave layout, 512 bytes) placed
// after the 8-byte-aligned u_fpvalid field, and the 8-element debug
// register array sits at the well-known offset 848. GPR and debug-register
// offsets are real PTRACE_PEEKUSER/POKEUSER addresses; FPR offsets only
// need to be self-consistent with this package's own buffer layout since
// FPR reads/writes always go through the whole-block GETFPREGS/SETFPREGS
// calls, never per-word peek/poke.

package inferior

import "github.com/intuitionamiga/pdb/internal/pdberr"

// RegisterID uniquely names a register in the catalog.
type RegisterID int

// RegisterType classifies how a register relates to the kernel user area.
type RegisterType int

const (
	GPR RegisterType = iota
	SubGPR
	FPR
	DR
)

// RegisterFormat selects how read/write interpret a register's bytes.
type RegisterFormat int

const (
	FormatUint RegisterFormat = iota
	FormatDouble
	FormatLongDouble
	FormatVector
)

// RegisterInfo is an immutable catalog entry.
type RegisterInfo struct {
	ID      RegisterID
	Name    string
	DwarfID int32 // -1 if the register has no DWARF mapping
	Size    int
	Offset  int
	Type    RegisterType
	Format  RegisterFormat
}

const (
	gprBlockSize = 216
	fprBase      = 224
	fprBlockSize = 512
	drBase       = 848
	drCount      = 8

	// BufferSize is the size of the byte buffer a RegisterFile owns.
	BufferSize = drBase + drCount*8
)

// gprDesc is the declarative source of truth for one 64-bit GPR family:
// its 64-bit name, kernel offset, DWARF number, and the names of its
// 32/16/8-bit aliases (empty where the family has none).
type gprDesc struct {
	name64  string
	offset  int
	dwarf   int32
	name32  string
	name16  string
	name8   string // low-8 alias (al, bl, ..., r8b, ...)
	name8hi string // high-8 alias (ah, bh, ch, dh); empty if none
}

var gprFamilies = []gprDesc{
	{"r15", 0, 15, "r15d", "r15w", "r15b", ""},
	{"r14", 8, 14, "r14d", "r14w", "r14b", ""},
	{"r13", 16, 13, "r13d", "r13w", "r13b", ""},
	{"r12", 24, 12, "r12d", "r12w", "r12b", ""},
	{"rbp", 32, 6, "ebp", "bp", "bpl", ""},
	{"rbx", 40, 3, "ebx", "bx", "bl", "bh"},
	{"r11", 48, 11, "r11d", "r11w", "r11b", ""},
	{"r10", 56, 10, "r10d", "r10w", "r10b", ""},
	{"r9", 64, 9, "r9d", "r9w", "r9b", ""},
	{"r8", 72, 8, "r8d", "r8w", "r8b", ""},
	{"rax", 80, 0, "eax", "ax", "al", "ah"},
	{"rcx", 88, 2, "ecx", "cx", "cl", "ch"},
	{"rdx", 96, 1, "edx", "dx", "dl", "dh"},
	{"rsi", 104, 4, "esi", "si", "sil", ""},
	{"rdi", 112, 5, "edi", "di", "dil", ""},
	{"orig_rax", 120, -1, "", "", "", ""},
	{"rip", 128, 16, "", "", "", ""},
	{"cs", 136, -1, "", "", "", ""},
	{"eflags", 144, 49, "", "", "", ""},
	{"rsp", 152, 7, "", "", "", ""},
	{"ss", 160, -1, "", "", "", ""},
	{"fs_base", 168, -1, "", "", "", ""},
	{"gs_base", 176, -1, "", "", "", ""},
	{"ds", 184, -1, "", "", "", ""},
	{"es", 192, -1, "", "", "", ""},
	{"fs", 200, -1, "", "", "", ""},
	{"gs", 208, -1, "", "", "", ""},
}

// fpDesc describes one fixed-offset field of the FPR/SSE block.
type fpDesc struct {
	name   string
	offset int
	size   int
	format RegisterFormat
}

var fpFields = []fpDesc{
	{"fcw", fprBase + 0, 2, FormatUint},
	{"fsw", fprBase + 2, 2, FormatUint},
	{"ftw", fprBase + 4, 2, FormatUint},
	{"fop", fprBase + 6, 2, FormatUint},
	{"frip", fprBase + 8, 8, FormatUint},
	{"frdp", fprBase + 16, 8, FormatUint},
	{"mxcsr", fprBase + 24, 4, FormatUint},
	{"mxcsr_mask", fprBase + 28, 4, FormatUint},
}

const (
	stSpaceBase  = fprBase + 32  // 256
	xmmSpaceBase = fprBase + 160 // 384
)

func buildCatalog() []RegisterInfo {
	var cat []RegisterInfo
	id := RegisterID(0)
	next := func() RegisterID {
		v := id
		id++
		return v
	}

	for _, g := range gprFamilies {
		cat = append(cat, RegisterInfo{next(), g.name64, g.dwarf, 8, g.offset, GPR, FormatUint})
		if g.name32 != "" {
			cat = append(cat, RegisterInfo{next(), g.name32, -1, 4, g.offset, SubGPR, FormatUint})
		}
		if g.name16 != "" {
			cat = append(cat, RegisterInfo{next(), g.name16, -1, 2, g.offset, SubGPR, FormatUint})
		}
		if g.name8 != "" {
			cat = append(cat, RegisterInfo{next(), g.name8, -1, 1, g.offset, SubGPR, FormatUint})
		}
		if g.name8hi != "" {
			// AH/BH/CH/DH alias the second byte of the enclosing word —
			// the odd offset that forces 8-byte realignment on write.
			cat = append(cat, RegisterInfo{next(), g.name8hi, -1, 1, g.offset + 1, SubGPR, FormatUint})
		}
	}

	for _, f := range fpFields {
		cat = append(cat, RegisterInfo{next(), f.name, -1, f.size, f.offset, FPR, f.format})
	}

	for i := 0; i < 8; i++ {
		cat = append(cat, RegisterInfo{next(), stName(i), -1, 10, stSpaceBase + i*16, FPR, FormatLongDouble})
	}
	for i := 0; i < 16; i++ {
		cat = append(cat, RegisterInfo{next(), xmmName(i), -1, 16, xmmSpaceBase + i*16, FPR, FormatVector})
	}

	for i := 0; i < drCount; i++ {
		cat = append(cat, RegisterInfo{next(), drName(i), -1, 8, drBase + i*8, DR, FormatUint})
	}

	return cat
}

func stName(i int) string  { return "st" + itoa(i) }
func xmmName(i int) string { return "xmm" + itoa(i) }
func drName(i int) string  { return "dr" + itoa(i) }

// itoa avoids pulling in strconv for single-digit register suffixes.
func itoa(i int) string {
	if i < 0 || i > 15 {
		panic("itoa: out of range")
	}
	if i < 10 {
		return string(rune('0' + i))
	}
	return string(rune('1')) + string(rune('0'+i-10))
}

// Catalog is the immutable, process-lifetime table of register descriptors.
var Catalog = buildCatalog()

var (
	byID   = make(map[RegisterID]*RegisterInfo, len(Catalog))
	byName = make(map[string]*RegisterInfo, len(Catalog))
	byDwf  = make(map[int32]*RegisterInfo, len(Catalog))
)

func init() {
	for i := range Catalog {
		e := &Catalog[i]
		byID[e.ID] = e
		byName[e.Name] = e
		if e.DwarfID >= 0 {
			byDwf[e.DwarfID] = e
		}
	}
}

// ByID looks up a register descriptor by its catalog ID.
func ByID(id RegisterID) (*RegisterInfo, error) {
	if e, ok := byID[id]; ok {
		return e, nil
	}
	return nil, pdberr.New(pdberr.NotFound, "no such register id")
}

// ByName looks up a register descriptor by name (e.g. "rax", "ah", "xmm3").
func ByName(name string) (*RegisterInfo, error) {
	if e, ok := byName[name]; ok {
		return e, nil
	}
	return nil, pdberr.New(pdberr.NotFound, "no such register: "+name)
}

// ByDwarf looks up a register descriptor by DWARF register number.
func ByDwarf(dwarfID int32) (*RegisterInfo, error) {
	if e, ok := byDwf[dwarfID]; ok {
		return e, nil
	}
	return nil, pdberr.New(pdberr.NotFound, "no register with that dwarf id")
}

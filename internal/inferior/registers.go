// registers.go - typed register file: buffer layout, read/write engine

package inferior

import (
	"encoding/binary"
	"math"

	"github.com/intuitionamiga/pdb/internal/pdberr"
)

// ValueKind discriminates the arm of a RegisterValue in use.
type ValueKind int

const (
	KindU8 ValueKind = iota
	KindU16
	KindU32
	KindU64
	KindI8
	KindI16
	KindI32
	KindI64
	KindFloat32
	KindFloat64
	KindLongDouble // 80-bit extended, stored as the raw 10 bytes
	KindBytes8
	KindBytes16
)

// RegisterValue is a discriminated union over every representable
// register value shape: unsigned/signed integers of width 1/2/4/8,
// float, double, 80-bit long double, and 8- or 16-byte opaque arrays.
type RegisterValue struct {
	Kind ValueKind

	U64   uint64
	I64   int64
	F32   float32
	F64   float64
	Ext80 [10]byte
	B8    [8]byte
	B16   [16]byte
}

func U8(v uint8) RegisterValue   { return RegisterValue{Kind: KindU8, U64: uint64(v)} }
func U16(v uint16) RegisterValue { return RegisterValue{Kind: KindU16, U64: uint64(v)} }
func U32(v uint32) RegisterValue { return RegisterValue{Kind: KindU32, U64: uint64(v)} }
func U64(v uint64) RegisterValue { return RegisterValue{Kind: KindU64, U64: v} }
func I8(v int8) RegisterValue    { return RegisterValue{Kind: KindI8, I64: int64(v)} }
func I16(v int16) RegisterValue  { return RegisterValue{Kind: KindI16, I64: int64(v)} }
func I32(v int32) RegisterValue  { return RegisterValue{Kind: KindI32, I64: int64(v)} }
func I64(v int64) RegisterValue  { return RegisterValue{Kind: KindI64, I64: v} }
func Float(v float32) RegisterValue  { return RegisterValue{Kind: KindFloat32, F32: v} }
func Double(v float64) RegisterValue { return RegisterValue{Kind: KindFloat64, F64: v} }
func Bytes8(v [8]byte) RegisterValue  { return RegisterValue{Kind: KindBytes8, B8: v} }
func Bytes16(v [16]byte) RegisterValue { return RegisterValue{Kind: KindBytes16, B16: v} }

// byteSize returns the natural width of the value's arm, before widening.
func (v RegisterValue) byteSize() int {
	switch v.Kind {
	case KindU8, KindI8:
		return 1
	case KindU16, KindI16:
		return 2
	case KindU32, KindI32, KindFloat32:
		return 4
	case KindU64, KindI64, KindFloat64:
		return 8
	case KindLongDouble:
		return 10
	case KindBytes8:
		return 8
	case KindBytes16:
		return 16
	default:
		return 0
	}
}

func (v RegisterValue) isSigned() bool {
	switch v.Kind {
	case KindI8, KindI16, KindI32, KindI64:
		return true
	default:
		return false
	}
}

func (v RegisterValue) isFloat() bool {
	return v.Kind == KindFloat32 || v.Kind == KindFloat64
}

// writer, implemented by the owning Process, flushes register-file
// changes back into the kernel. A non-owning back-reference, handed to
// the RegisterFile at construction time by the same Process that owns
// both, so it is always valid for the RegisterFile's lifetime.
type writer interface {
	writeFPRegs(buf []byte) error
	pokeUser(alignedOffset int, word uint64) error
}

// RegisterFile mirrors the kernel's per-process register dump: the GPR
// block, the FPR/SSE block, and the 8-element debug register array, laid
// out exactly as described in catalog.go.
type RegisterFile struct {
	data [BufferSize]byte
	proc writer
}

func newRegisterFile(proc writer) *RegisterFile {
	return &RegisterFile{proc: proc}
}

// gprBlock returns the slice of the buffer backing the GETREGS layout.
func (r *RegisterFile) gprBlock() []byte { return r.data[0:gprBlockSize] }

// fprBlock returns the slice of the buffer backing the GETFPREGS layout.
func (r *RegisterFile) fprBlock() []byte { return r.data[fprBase : fprBase+fprBlockSize] }

// setGPRBlock overwrites the GPR sub-area, e.g. after GETREGS.
func (r *RegisterFile) setGPRBlock(b []byte) { copy(r.data[0:gprBlockSize], b) }

// setFPRBlock overwrites the FPR/SSE sub-area, e.g. after GETFPREGS.
func (r *RegisterFile) setFPRBlock(b []byte) { copy(r.data[fprBase:fprBase+fprBlockSize], b) }

// setDebugReg stores one peeked debug-register word.
func (r *RegisterFile) setDebugReg(i int, word uint64) {
	binary.LittleEndian.PutUint64(r.data[drBase+i*8:drBase+i*8+8], word)
}

// Read interprets info.Size bytes at info.Offset according to info.Format.
// No sign-extension is applied on read: the raw bits are returned.
func (r *RegisterFile) Read(info *RegisterInfo) (RegisterValue, error) {
	b := r.data[info.Offset : info.Offset+info.Size]

	switch info.Format {
	case FormatUint:
		switch info.Size {
		case 1:
			return U8(b[0]), nil
		case 2:
			return U16(binary.LittleEndian.Uint16(b)), nil
		case 4:
			return U32(binary.LittleEndian.Uint32(b)), nil
		case 8:
			return U64(binary.LittleEndian.Uint64(b)), nil
		default:
			return RegisterValue{}, pdberr.New(pdberr.InvalidRegister, "unexpected register size")
		}
	case FormatDouble:
		bits := binary.LittleEndian.Uint64(b)
		return Double(math.Float64frombits(bits)), nil
	case FormatLongDouble:
		var ext [10]byte
		copy(ext[:], b)
		return RegisterValue{Kind: KindLongDouble, Ext80: ext}, nil
	case FormatVector:
		if info.Size == 8 {
			var v [8]byte
			copy(v[:], b)
			return Bytes8(v), nil
		}
		var v [16]byte
		copy(v[:], b)
		return Bytes16(v), nil
	default:
		return RegisterValue{}, pdberr.New(pdberr.InvalidRegister, "unexpected register format")
	}
}

// Write widens val into info's storage width, copies it into the owned
// buffer, and flushes the change to the kernel: FPR writes push the
// whole FPR/SSE block, GPR/DR writes poke the single 8-byte-aligned word
// containing info.Offset.
func (r *RegisterFile) Write(info *RegisterInfo, val RegisterValue) error {
	n := val.byteSize()
	if n > info.Size {
		// A programmer error per spec: mismatched register/value sizes
		// must never silently truncate.
		panic("register write called with mismatched register and value sizes")
	}

	var staging [16]byte
	widen(info, val, &staging)

	copy(r.data[info.Offset:info.Offset+info.Size], staging[:info.Size])

	if info.Type == FPR {
		return r.proc.writeFPRegs(r.fprBlock())
	}

	alignedOffset := info.Offset &^ 0b111
	word := binary.LittleEndian.Uint64(r.data[alignedOffset : alignedOffset+8])
	return r.proc.pokeUser(alignedOffset, word)
}

// widen extends val into a 16-byte staging buffer per the rules in
// spec.md §4.4: float/double cast to the target float width, signed
// integers sign-extend to info.Size, everything else is a raw byte copy.
func widen(info *RegisterInfo, val RegisterValue, staging *[16]byte) {
	if val.isFloat() {
		switch info.Format {
		case FormatDouble:
			f := val.F64
			if val.Kind == KindFloat32 {
				f = float64(val.F32)
			}
			binary.LittleEndian.PutUint64(staging[0:8], math.Float64bits(f))
			return
		case FormatLongDouble:
			f := val.F64
			if val.Kind == KindFloat32 {
				f = float64(val.F32)
			}
			ext := float64ToExtended80(f)
			copy(staging[:10], ext[:])
			return
		}
	}

	if val.Kind == KindLongDouble {
		copy(staging[:10], val.Ext80[:])
		return
	}

	if val.isSigned() && info.Format == FormatUint {
		switch info.Size {
		case 2:
			binary.LittleEndian.PutUint16(staging[0:2], uint16(int16(val.I64)))
			return
		case 4:
			binary.LittleEndian.PutUint32(staging[0:4], uint32(int32(val.I64)))
			return
		case 8:
			binary.LittleEndian.PutUint64(staging[0:8], uint64(val.I64))
			return
		}
	}

	// Zero-extend / raw-copy into the low n bytes.
	switch val.Kind {
	case KindU8:
		staging[0] = byte(val.U64)
	case KindU16:
		binary.LittleEndian.PutUint16(staging[0:2], uint16(val.U64))
	case KindU32:
		binary.LittleEndian.PutUint32(staging[0:4], uint32(val.U64))
	case KindU64:
		binary.LittleEndian.PutUint64(staging[0:8], val.U64)
	case KindI8:
		staging[0] = byte(val.I64)
	case KindI16:
		binary.LittleEndian.PutUint16(staging[0:2], uint16(val.I64))
	case KindI32:
		binary.LittleEndian.PutUint32(staging[0:4], uint32(val.I64))
	case KindI64:
		binary.LittleEndian.PutUint64(staging[0:8], uint64(val.I64))
	case KindFloat32:
		binary.LittleEndian.PutUint32(staging[0:4], math.Float32bits(val.F32))
	case KindFloat64:
		binary.LittleEndian.PutUint64(staging[0:8], math.Float64bits(val.F64))
	case KindBytes8:
		copy(staging[0:8], val.B8[:])
	case KindBytes16:
		copy(staging[0:16], val.B16[:])
	}
}

// extended80 bias/width constants for the x87 80-bit format: 1 sign bit
// plus 15 exponent bits (bias 16383) followed by a 64-bit significand
// with an explicit integer bit, unlike binary64's implicit one.
const (
	extBias     = 16383
	doubleBias  = 1023
	doubleFrac  = 52
	extFracGain = 63 - doubleFrac // widening the 52 fraction bits to 63
)

// float64ToExtended80 converts a binary64 value into the 10-byte x87
// extended-precision layout (low 8 bytes: significand with explicit
// integer bit; high 2 bytes: sign and biased exponent).
func float64ToExtended80(f float64) [10]byte {
	var out [10]byte

	bits := math.Float64bits(f)
	sign := uint16((bits >> 63) << 15)
	exp := (bits >> doubleFrac) & 0x7ff
	frac := bits & (1<<doubleFrac - 1)

	var extExp uint16
	var significand uint64

	switch exp {
	case 0:
		if frac == 0 {
			extExp, significand = 0, 0
		} else {
			// Subnormal double: normalize into extended precision by
			// shifting the fraction left until its leading bit lands in
			// the explicit integer-bit position.
			e := int64(1-doubleBias) + extBias
			m := frac << extFracGain
			for m&(1<<63) == 0 {
				m <<= 1
				e--
			}
			if e < 0 {
				e = 0
			}
			extExp, significand = uint16(e), m
		}
	case 0x7ff:
		extExp = 0x7fff
		if frac == 0 {
			significand = 1 << 63 // infinity
		} else {
			significand = (1 << 63) | (frac << extFracGain) // NaN
		}
	default:
		extExp = uint16(int64(exp) - doubleBias + extBias)
		significand = (1 << 63) | (frac << extFracGain)
	}

	binary.LittleEndian.PutUint64(out[0:8], significand)
	binary.LittleEndian.PutUint16(out[8:10], extExp|sign)
	return out
}

// extended80ToFloat64 converts the 10-byte x87 extended-precision layout
// back into a binary64 value. Every binary64 value round-trips exactly:
// extended precision carries strictly more significand bits than double.
func extended80ToFloat64(b [10]byte) float64 {
	significand := binary.LittleEndian.Uint64(b[0:8])
	word := binary.LittleEndian.Uint16(b[8:10])
	sign := uint64(word>>15) & 1
	extExp := uint64(word & 0x7fff)

	if extExp == 0 && significand == 0 {
		return math.Float64frombits(sign << 63)
	}
	if extExp == 0x7fff {
		if significand == 1<<63 {
			return math.Float64frombits((sign << 63) | (0x7ff << doubleFrac))
		}
		nan := (significand &^ (1 << 63)) >> extFracGain
		if nan == 0 {
			nan = 1
		}
		return math.Float64frombits((sign << 63) | (0x7ff << doubleFrac) | nan)
	}

	e := int64(extExp) - extBias + doubleBias
	frac := (significand &^ (1 << 63)) >> extFracGain
	if e <= 0 {
		// Below binary64's normal range: denormalize, keeping the
		// explicit integer bit, so subnormal doubles come back intact.
		shift := 12 - e
		if shift >= 64 {
			return math.Float64frombits(sign << 63)
		}
		return math.Float64frombits((sign << 63) | significand>>uint(shift))
	}
	if e >= 0x7ff {
		return math.Float64frombits((sign << 63) | (0x7ff << doubleFrac))
	}
	return math.Float64frombits((sign << 63) | (uint64(e) << doubleFrac) | frac)
}

// Float64 returns val as a binary64 for the floating-point arms:
// KindFloat64 and KindFloat32 values pass through (with a width cast for
// float32), and KindLongDouble values are converted up from the raw
// 80-bit extended representation. Every other arm returns 0.
func (v RegisterValue) Float64() float64 {
	switch v.Kind {
	case KindFloat32:
		return float64(v.F32)
	case KindFloat64:
		return v.F64
	case KindLongDouble:
		return extended80ToFloat64(v.Ext80)
	default:
		return 0
	}
}

// ReadByID looks up id in the catalog and reads its current value.
func (r *RegisterFile) ReadByID(id RegisterID) (RegisterValue, error) {
	info, err := ByID(id)
	if err != nil {
		return RegisterValue{}, err
	}
	return r.Read(info)
}

// WriteByID looks up id in the catalog and writes val to it.
func (r *RegisterFile) WriteByID(id RegisterID, val RegisterValue) error {
	info, err := ByID(id)
	if err != nil {
		return err
	}
	return r.Write(info, val)
}

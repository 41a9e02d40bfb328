// Package testutil assembles small class files for tests.
package testutil

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

type constantPool struct {
	buf   bytes.Buffer
	next  uint16
	index map[string]uint16
}

func newConstantPool() *constantPool {
	return &constantPool{next: 1, index: make(map[string]uint16)}
}

func (p *constantPool) add(key string, slots uint16, write func(w *bytes.Buffer)) uint16 {
	if i, ok := p.index[key]; ok {
		return i
	}
	i := p.next
	write(&p.buf)
	p.next += slots
	p.index[key] = i
	return i
}

func (p *constantPool) utf8(s string) uint16 {
	return p.add("utf8:"+s, 1, func(w *bytes.Buffer) {
		w.WriteByte(1)
		writeU2(w, uint16(len(s)))
		w.WriteString(s)
	})
}

func (p *constantPool) ref(tag byte, key string, a, b uint16) uint16 {
	return p.add(fmt.Sprintf("%d:%s", tag, key), 1, func(w *bytes.Buffer) {
		w.WriteByte(tag)
		writeU2(w, a)
		writeU2(w, b)
	})
}

func (p *constantPool) single(tag byte, key string, a uint16) uint16 {
	return p.add(fmt.Sprintf("%d:%s", tag, key), 1, func(w *bytes.Buffer) {
		w.WriteByte(tag)
		writeU2(w, a)
	})
}

func (p *constantPool) class(name string) uint16 {
	return p.single(7, name, p.utf8(name))
}

func (p *constantPool) str(s string) uint16 {
	return p.single(8, s, p.utf8(s))
}

func (p *constantPool) methodType(desc string) uint16 {
	return p.single(16, desc, p.utf8(desc))
}

func (p *constantPool) integer(v int32) uint16 {
	return p.add(fmt.Sprintf("int:%d", v), 1, func(w *bytes.Buffer) {
		w.WriteByte(3)
		writeU4(w, uint32(v))
	})
}

func (p *constantPool) float(v float32) uint16 {
	return p.add(fmt.Sprintf("float:%x", math.Float32bits(v)), 1, func(w *bytes.Buffer) {
		w.WriteByte(4)
		writeU4(w, math.Float32bits(v))
	})
}

func (p *constantPool) long(v int64) uint16 {
	return p.add(fmt.Sprintf("long:%d", v), 2, func(w *bytes.Buffer) {
		w.WriteByte(5)
		writeU8(w, uint64(v))
	})
}

func (p *constantPool) double(v float64) uint16 {
	return p.add(fmt.Sprintf("double:%x", math.Float64bits(v)), 2, func(w *bytes.Buffer) {
		w.WriteByte(6)
		writeU8(w, math.Float64bits(v))
	})
}

func (p *constantPool) nameAndType(name, desc string) uint16 {
	return p.ref(12, name+":"+desc, p.utf8(name), p.utf8(desc))
}

func (p *constantPool) member(tag byte, owner, name, desc string) uint16 {
	return p.ref(tag, owner+"."+name+desc, p.class(owner), p.nameAndType(name, desc))
}

func (p *constantPool) methodHandle(kind byte, owner, name, desc string, iface bool) uint16 {
	tag := byte(10)
	if iface {
		tag = 11
	}
	ref := p.member(tag, owner, name, desc)
	return p.add(fmt.Sprintf("mh:%d:%d", kind, ref), 1, func(w *bytes.Buffer) {
		w.WriteByte(15)
		w.WriteByte(kind)
		writeU2(w, ref)
	})
}

// Handle describes a method handle constant
type Handle struct {
	Kind       byte
	Owner      string
	Name       string
	Descriptor string
	Interface  bool
}

// MethodType is a method type bootstrap argument
type MethodType string

type bootstrapMethod struct {
	ref  uint16
	args []uint16
}

// ClassBuilder assembles a class file in memory
type ClassBuilder struct {
	name       string
	super      string
	sourceFile string
	pool       *constantPool
	methods    []*CodeBuilder
	bootstraps []bootstrapMethod
}

func NewClass(name string) *ClassBuilder {
	return &ClassBuilder{name: name, super: "java/lang/Object", pool: newConstantPool()}
}

func (b *ClassBuilder) SourceFile(name string) *ClassBuilder {
	b.sourceFile = name
	return b
}

// Method starts a method with a Code attribute
func (b *ClassBuilder) Method(access uint16, name, desc string) *CodeBuilder {
	m := &CodeBuilder{class: b, access: access, name: name, desc: desc, hasCode: true}
	b.methods = append(b.methods, m)
	return m
}

// AbstractMethod declares a method without a Code attribute
func (b *ClassBuilder) AbstractMethod(access uint16, name, desc string) *CodeBuilder {
	m := &CodeBuilder{class: b, access: access | 0x0400, name: name, desc: desc}
	b.methods = append(b.methods, m)
	return m
}

func (b *ClassBuilder) bootstrap(h Handle, args []any) uint16 {
	bm := bootstrapMethod{ref: b.pool.methodHandle(h.Kind, h.Owner, h.Name, h.Descriptor, h.Interface)}
	for _, a := range args {
		bm.args = append(bm.args, b.loadable(a))
	}
	b.bootstraps = append(b.bootstraps, bm)
	return uint16(len(b.bootstraps) - 1)
}

func (b *ClassBuilder) loadable(v any) uint16 {
	switch c := v.(type) {
	case int32:
		return b.pool.integer(c)
	case int:
		return b.pool.integer(int32(c))
	case int64:
		return b.pool.long(c)
	case float32:
		return b.pool.float(c)
	case float64:
		return b.pool.double(c)
	case string:
		return b.pool.str(c)
	case MethodType:
		return b.pool.methodType(string(c))
	case Handle:
		return b.pool.methodHandle(c.Kind, c.Owner, c.Name, c.Descriptor, c.Interface)
	}
	panic(fmt.Sprintf("testutil: unsupported constant %T", v))
}

// Bytes serialises the class
func (b *ClassBuilder) Bytes() []byte {
	var body bytes.Buffer
	writeU2(&body, 0x0021) // public super
	writeU2(&body, b.pool.class(b.name))
	writeU2(&body, b.pool.class(b.super))
	writeU2(&body, 0) // interfaces
	writeU2(&body, 0) // fields

	writeU2(&body, uint16(len(b.methods)))
	for _, m := range b.methods {
		m.write(&body)
	}

	var attrs [][]byte
	if b.sourceFile != "" {
		var a bytes.Buffer
		writeU2(&a, b.pool.utf8("SourceFile"))
		writeU4(&a, 2)
		writeU2(&a, b.pool.utf8(b.sourceFile))
		attrs = append(attrs, a.Bytes())
	}
	if len(b.bootstraps) > 0 {
		var payload bytes.Buffer
		writeU2(&payload, uint16(len(b.bootstraps)))
		for _, bm := range b.bootstraps {
			writeU2(&payload, bm.ref)
			writeU2(&payload, uint16(len(bm.args)))
			for _, a := range bm.args {
				writeU2(&payload, a)
			}
		}
		var a bytes.Buffer
		writeU2(&a, b.pool.utf8("BootstrapMethods"))
		writeU4(&a, uint32(payload.Len()))
		a.Write(payload.Bytes())
		attrs = append(attrs, a.Bytes())
	}
	writeU2(&body, uint16(len(attrs)))
	for _, a := range attrs {
		body.Write(a)
	}

	var out bytes.Buffer
	writeU4(&out, 0xCAFEBABE)
	writeU2(&out, 0)  // minor
	writeU2(&out, 61) // major, Java 17
	writeU2(&out, b.pool.next)
	out.Write(b.pool.buf.Bytes())
	out.Write(body.Bytes())
	return out.Bytes()
}

type lineEntry struct {
	pc, line uint16
}

type annotation struct {
	desc    string
	name    string
	value   int32
	visible bool
}

// CodeBuilder appends bytecode to one method
type CodeBuilder struct {
	class       *ClassBuilder
	access      uint16
	name        string
	desc        string
	hasCode     bool
	code        bytes.Buffer
	lines       []lineEntry
	annotations []annotation
}

// Class returns the owning builder
func (c *CodeBuilder) Class() *ClassBuilder {
	return c.class
}

func (c *CodeBuilder) PC() int {
	return c.code.Len()
}

// IntAnnotation attaches an annotation with a single int element
func (c *CodeBuilder) IntAnnotation(desc, name string, value int32, visible bool) *CodeBuilder {
	c.annotations = append(c.annotations, annotation{desc: desc, name: name, value: value, visible: visible})
	return c
}

func (c *CodeBuilder) Line(n int) *CodeBuilder {
	c.lines = append(c.lines, lineEntry{pc: uint16(c.code.Len()), line: uint16(n)})
	return c
}

// Op emits an operand-less opcode
func (c *CodeBuilder) Op(op byte) *CodeBuilder {
	c.code.WriteByte(op)
	return c
}

func (c *CodeBuilder) Bipush(v int8) *CodeBuilder {
	c.code.WriteByte(0x10)
	c.code.WriteByte(byte(v))
	return c
}

func (c *CodeBuilder) Sipush(v int16) *CodeBuilder {
	c.code.WriteByte(0x11)
	writeU2(&c.code, uint16(v))
	return c
}

// Int pushes an int using the shortest encoding javac would pick
func (c *CodeBuilder) Int(v int32) *CodeBuilder {
	switch {
	case v >= -1 && v <= 5:
		return c.Op(byte(0x03 + v))
	case v >= math.MinInt8 && v <= math.MaxInt8:
		return c.Bipush(int8(v))
	case v >= math.MinInt16 && v <= math.MaxInt16:
		return c.Sipush(int16(v))
	}
	return c.Ldc(v)
}

// Ldc loads a constant, picking ldc, ldc_w or ldc2_w
func (c *CodeBuilder) Ldc(v any) *CodeBuilder {
	idx := c.class.loadable(v)
	switch v.(type) {
	case int64, float64:
		c.code.WriteByte(0x14)
		writeU2(&c.code, idx)
	default:
		if idx < 256 {
			c.code.WriteByte(0x12)
			c.code.WriteByte(byte(idx))
		} else {
			c.code.WriteByte(0x13)
			writeU2(&c.code, idx)
		}
	}
	return c
}

// LdcClass loads a class literal
func (c *CodeBuilder) LdcClass(name string) *CodeBuilder {
	idx := c.class.pool.class(name)
	c.code.WriteByte(0x13)
	writeU2(&c.code, idx)
	return c
}

func (c *CodeBuilder) Var(op byte, slot uint8) *CodeBuilder {
	c.code.WriteByte(op)
	c.code.WriteByte(slot)
	return c
}

// WideVar emits a wide load or store
func (c *CodeBuilder) WideVar(op byte, slot uint16) *CodeBuilder {
	c.code.WriteByte(0xc4)
	c.code.WriteByte(op)
	writeU2(&c.code, slot)
	return c
}

func (c *CodeBuilder) Iinc(slot uint8, inc int8) *CodeBuilder {
	c.code.WriteByte(0x84)
	c.code.WriteByte(slot)
	c.code.WriteByte(byte(inc))
	return c
}

func (c *CodeBuilder) WideIinc(slot uint16, inc int16) *CodeBuilder {
	c.code.WriteByte(0xc4)
	c.code.WriteByte(0x84)
	writeU2(&c.code, slot)
	writeU2(&c.code, uint16(inc))
	return c
}

// Jump emits a branch with a raw offset relative to the branch opcode
func (c *CodeBuilder) Jump(op byte, offset int16) *CodeBuilder {
	c.code.WriteByte(op)
	writeU2(&c.code, uint16(offset))
	return c
}

func (c *CodeBuilder) Type(op byte, class string) *CodeBuilder {
	c.code.WriteByte(op)
	writeU2(&c.code, c.class.pool.class(class))
	return c
}

func (c *CodeBuilder) MultiANewArray(desc string, dims uint8) *CodeBuilder {
	c.code.WriteByte(0xc5)
	writeU2(&c.code, c.class.pool.class(desc))
	c.code.WriteByte(dims)
	return c
}

func (c *CodeBuilder) Field(op byte, owner, name, desc string) *CodeBuilder {
	c.code.WriteByte(op)
	writeU2(&c.code, c.class.pool.member(9, owner, name, desc))
	return c
}

// Invoke emits invokevirtual, invokespecial or invokestatic
func (c *CodeBuilder) Invoke(op byte, owner, name, desc string) *CodeBuilder {
	c.code.WriteByte(op)
	writeU2(&c.code, c.class.pool.member(10, owner, name, desc))
	return c
}

func (c *CodeBuilder) InvokeInterface(owner, name, desc string, argSlots uint8) *CodeBuilder {
	c.code.WriteByte(0xb9)
	writeU2(&c.code, c.class.pool.member(11, owner, name, desc))
	c.code.WriteByte(argSlots + 1)
	c.code.WriteByte(0)
	return c
}

// InvokeDynamic emits a call site bootstrapped by bsm with static args
func (c *CodeBuilder) InvokeDynamic(name, desc string, bsm Handle, args ...any) *CodeBuilder {
	bi := c.class.bootstrap(bsm, args)
	c.code.WriteByte(0xba)
	writeU2(&c.code, c.class.pool.ref(18, fmt.Sprintf("%d:%s%s", bi, name, desc), bi, c.class.pool.nameAndType(name, desc)))
	c.code.WriteByte(0)
	c.code.WriteByte(0)
	return c
}

// TableSwitch emits a tableswitch with offsets relative to the opcode
func (c *CodeBuilder) TableSwitch(low int32, def int32, offsets ...int32) *CodeBuilder {
	c.code.WriteByte(0xaa)
	c.pad()
	writeU4(&c.code, uint32(def))
	writeU4(&c.code, uint32(low))
	writeU4(&c.code, uint32(low+int32(len(offsets))-1))
	for _, o := range offsets {
		writeU4(&c.code, uint32(o))
	}
	return c
}

// LookupSwitch emits a lookupswitch; pairs alternate key, offset
func (c *CodeBuilder) LookupSwitch(def int32, pairs ...int32) *CodeBuilder {
	c.code.WriteByte(0xab)
	c.pad()
	writeU4(&c.code, uint32(def))
	writeU4(&c.code, uint32(len(pairs)/2))
	for _, p := range pairs {
		writeU4(&c.code, uint32(p))
	}
	return c
}

func (c *CodeBuilder) pad() {
	for c.code.Len()%4 != 0 {
		c.code.WriteByte(0)
	}
}

// Raw appends bytes verbatim
func (c *CodeBuilder) Raw(b ...byte) *CodeBuilder {
	c.code.Write(b)
	return c
}

func (c *CodeBuilder) write(w *bytes.Buffer) {
	pool := c.class.pool
	writeU2(w, c.access)
	writeU2(w, pool.utf8(c.name))
	writeU2(w, pool.utf8(c.desc))

	var attrs [][]byte
	if c.hasCode {
		attrs = append(attrs, c.codeAttribute())
	}
	for _, visible := range []bool{true, false} {
		if a := c.annotationAttribute(visible); a != nil {
			attrs = append(attrs, a)
		}
	}
	writeU2(w, uint16(len(attrs)))
	for _, a := range attrs {
		w.Write(a)
	}
}

func (c *CodeBuilder) codeAttribute() []byte {
	pool := c.class.pool
	var payload bytes.Buffer
	writeU2(&payload, 16) // max_stack
	writeU2(&payload, 16) // max_locals
	writeU4(&payload, uint32(c.code.Len()))
	payload.Write(c.code.Bytes())
	writeU2(&payload, 0) // exception table

	if len(c.lines) == 0 {
		writeU2(&payload, 0)
	} else {
		writeU2(&payload, 1)
		writeU2(&payload, pool.utf8("LineNumberTable"))
		writeU4(&payload, uint32(2+4*len(c.lines)))
		writeU2(&payload, uint16(len(c.lines)))
		for _, l := range c.lines {
			writeU2(&payload, l.pc)
			writeU2(&payload, l.line)
		}
	}

	var a bytes.Buffer
	writeU2(&a, pool.utf8("Code"))
	writeU4(&a, uint32(payload.Len()))
	a.Write(payload.Bytes())
	return a.Bytes()
}

func (c *CodeBuilder) annotationAttribute(visible bool) []byte {
	pool := c.class.pool
	var payload bytes.Buffer
	n := 0
	for _, an := range c.annotations {
		if an.visible != visible {
			continue
		}
		n++
		writeU2(&payload, pool.utf8(an.desc))
		writeU2(&payload, 1)
		writeU2(&payload, pool.utf8(an.name))
		payload.WriteByte('I')
		writeU2(&payload, pool.integer(an.value))
	}
	if n == 0 {
		return nil
	}

	name := "RuntimeInvisibleAnnotations"
	if visible {
		name = "RuntimeVisibleAnnotations"
	}
	var a bytes.Buffer
	writeU2(&a, pool.utf8(name))
	writeU4(&a, uint32(payload.Len()+2))
	writeU2(&a, uint16(n))
	a.Write(payload.Bytes())
	return a.Bytes()
}

func writeU2(w *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	w.Write(b[:])
}

func writeU4(w *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.Write(b[:])
}

func writeU8(w *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.Write(b[:])
}

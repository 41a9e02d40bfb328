package classfile

import (
	"errors"
	"fmt"
	"sort"
)

/*
Code_attribute {
	u2 attribute_name_index;
	u4 attribute_length;
	u2 max_stack;
	u2 max_locals;
	u4 code_length;
	u1 code[code_length];
	u2 exception_table_length;
	{ u2 start_pc; u2 end_pc; u2 handler_pc; u2 catch_type; } exception_table[exception_table_length];
	u2 attributes_count;
	attribute_info attributes[attributes_count];
}
*/

// rawCode holds an undecoded Code attribute. Decoding is deferred until the
// BootstrapMethods class attribute, which follows the methods, is known.
type rawCode struct {
	code     []byte
	base     int // absolute offset of code[0]
	maxStack int
	maxLocal int
	lines    []lineEntry
}

type lineEntry struct {
	pc   int
	line int
}

func parseCodeAttribute(br *BinaryReader, pool *ConstantPool) (*rawCode, error) {
	maxStack, err := br.ReadU2()
	if err != nil {
		return nil, fmt.Errorf("failed to read max_stack: %w", err)
	}
	maxLocals, err := br.ReadU2()
	if err != nil {
		return nil, fmt.Errorf("failed to read max_locals: %w", err)
	}
	codeLength, err := br.ReadU4()
	if err != nil {
		return nil, fmt.Errorf("failed to read code length: %w", err)
	}
	base := br.Offset()
	code, err := br.ReadNBytes(int(codeLength))
	if err != nil {
		return nil, fmt.Errorf("failed to read code: %w", err)
	}

	exceptions, err := br.ReadU2()
	if err != nil {
		return nil, fmt.Errorf("failed to read exception table length: %w", err)
	}
	if err := br.Skip(int(exceptions) * 8); err != nil {
		return nil, fmt.Errorf("failed to skip exception table: %w", err)
	}

	raw := &rawCode{code: code, base: base, maxStack: int(maxStack), maxLocal: int(maxLocals)}
	err = readAttributes(br, pool, func(name string, attr *BinaryReader) error {
		if name != "LineNumberTable" {
			return nil
		}
		count, err := attr.ReadU2()
		if err != nil {
			return fmt.Errorf("failed to read line number count: %w", err)
		}
		for i := 0; i < int(count); i++ {
			pc, err := attr.ReadU2()
			if err != nil {
				return fmt.Errorf("failed to read line number pc: %w", err)
			}
			line, err := attr.ReadU2()
			if err != nil {
				return fmt.Errorf("failed to read line number: %w", err)
			}
			raw.lines = append(raw.lines, lineEntry{pc: int(pc), line: int(line)})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(raw.lines, func(i, j int) bool { return raw.lines[i].pc < raw.lines[j].pc })
	return raw, nil
}

// decodeCode turns a code array into instructions, interleaving LineNumber
// pseudo-instructions in front of the instruction they annotate
func decodeCode(raw *rawCode, pool *ConstantPool) ([]Instruction, error) {
	br := newSubReader(raw.code, raw.base)
	insns := make([]Instruction, 0, len(raw.code)/2)
	nextLine := 0

	for br.Remaining() > 0 {
		pc := br.BytesRead()
		for nextLine < len(raw.lines) && raw.lines[nextLine].pc <= pc {
			insns = append(insns, LineNumber{Line: raw.lines[nextLine].line})
			nextLine++
		}

		insn, err := decodeInstruction(br, pool, pc)
		if err != nil {
			var fe *FormatError
			if errors.As(err, &fe) {
				return nil, err
			}
			return nil, &FormatError{Offset: raw.base + pc, Err: err}
		}
		insns = append(insns, insn)
	}
	return insns, nil
}

func decodeInstruction(br *BinaryReader, pool *ConstantPool, pc int) (Instruction, error) {
	b, err := br.ReadU1()
	if err != nil {
		return nil, err
	}
	op := int(b)

	switch {
	case op <= DCONST_1:
		return SimpleInsn{Op: op}, nil

	case op == BIPUSH:
		v, err := br.ReadI1()
		return IntInsn{Op: op, Operand: int(v)}, err

	case op == SIPUSH:
		v, err := br.ReadI2()
		return IntInsn{Op: op, Operand: int(v)}, err

	case op == NEWARRAY:
		v, err := br.ReadU1()
		return IntInsn{Op: op, Operand: int(v)}, err

	case op == LDC:
		idx, err := br.ReadU1()
		if err != nil {
			return nil, err
		}
		return ldc(pool, op, uint16(idx))

	case op == LDC_W || op == LDC2_W:
		idx, err := br.ReadU2()
		if err != nil {
			return nil, err
		}
		return ldc(pool, op, idx)

	case (op >= ILOAD && op <= ALOAD) || (op >= ISTORE && op <= ASTORE) || op == RET:
		slot, err := br.ReadU1()
		return VarInsn{Op: op, Slot: int(slot)}, err

	case isLoadShortForm(op):
		return VarInsn{Op: op, Slot: (op - ILOAD_0) % 4}, nil

	case isStoreShortForm(op):
		return VarInsn{Op: op, Slot: (op - ISTORE_0) % 4}, nil

	case op == IINC:
		slot, err := br.ReadU1()
		if err != nil {
			return nil, err
		}
		inc, err := br.ReadI1()
		return IincInsn{Slot: int(slot), Increment: int(inc)}, err

	case isJump(op):
		off, err := br.ReadI2()
		return JumpInsn{Op: op, Target: pc + int(off)}, err

	case op == GOTO_W || op == JSR_W:
		off, err := br.ReadI4()
		return JumpInsn{Op: op, Target: pc + int(off)}, err

	case op == TABLESWITCH:
		return decodeTableSwitch(br, pc)

	case op == LOOKUPSWITCH:
		return decodeLookupSwitch(br, pc)

	case op >= GETSTATIC && op <= PUTFIELD:
		idx, err := br.ReadU2()
		if err != nil {
			return nil, err
		}
		owner, name, desc, _, err := pool.MemberRef(idx)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve field reference: %w", err)
		}
		return FieldInsn{Op: op, Owner: owner, Name: name, Descriptor: desc}, nil

	case op >= INVOKEVIRTUAL && op <= INVOKEINTERFACE:
		idx, err := br.ReadU2()
		if err != nil {
			return nil, err
		}
		if op == INVOKEINTERFACE {
			// count, 0
			if err := br.Skip(2); err != nil {
				return nil, err
			}
		}
		owner, name, desc, iface, err := pool.MemberRef(idx)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve method reference: %w", err)
		}
		return MethodInsn{Op: op, Owner: owner, Name: name, Descriptor: desc, Interface: iface}, nil

	case op == INVOKEDYNAMIC:
		idx, err := br.ReadU2()
		if err != nil {
			return nil, err
		}
		if err := br.Skip(2); err != nil {
			return nil, err
		}
		name, desc, bsm, args, err := pool.InvokeDynamic(idx)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve call site: %w", err)
		}
		return InvokeDynamicInsn{Name: name, Descriptor: desc, Bootstrap: bsm, BootstrapArgs: args}, nil

	case op == NEW || op == ANEWARRAY || op == CHECKCAST || op == INSTANCEOF:
		idx, err := br.ReadU2()
		if err != nil {
			return nil, err
		}
		name, err := pool.ClassName(idx)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve type: %w", err)
		}
		return TypeInsn{Op: op, Descriptor: name}, nil

	case op == MULTIANEWARRAY:
		idx, err := br.ReadU2()
		if err != nil {
			return nil, err
		}
		dims, err := br.ReadU1()
		if err != nil {
			return nil, err
		}
		name, err := pool.ClassName(idx)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve type: %w", err)
		}
		return TypeInsn{Op: op, Descriptor: name, Dimensions: int(dims)}, nil

	case op == WIDE:
		return decodeWide(br)

	case op <= MONITOREXIT:
		// remaining operand-less opcodes: arithmetic, conversions, returns, stack ops
		return SimpleInsn{Op: op}, nil
	}

	return nil, fmt.Errorf("%w: 0x%02x at pc %d", ErrUnknownOpcode, op, pc)
}

func ldc(pool *ConstantPool, op int, idx uint16) (Instruction, error) {
	c, err := pool.Loadable(idx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve ldc constant: %w", err)
	}
	return LdcInsn{Op: op, Value: c}, nil
}

func decodeWide(br *BinaryReader) (Instruction, error) {
	b, err := br.ReadU1()
	if err != nil {
		return nil, err
	}
	op := int(b)
	slot, err := br.ReadU2()
	if err != nil {
		return nil, err
	}

	switch {
	case op == IINC:
		inc, err := br.ReadI2()
		return IincInsn{Slot: int(slot), Increment: int(inc)}, err
	case (op >= ILOAD && op <= ALOAD) || (op >= ISTORE && op <= ASTORE) || op == RET:
		return VarInsn{Op: op, Slot: int(slot)}, nil
	}
	return nil, fmt.Errorf("%w: wide 0x%02x", ErrUnknownOpcode, op)
}

/*
tableswitch: <0-3 byte pad> default:i4 low:i4 high:i4 offsets:i4[high-low+1]
lookupswitch: <0-3 byte pad> default:i4 npairs:i4 {match:i4 offset:i4}[npairs]
Padding aligns the first operand to a multiple of four from the start of the code array.
*/

func decodeTableSwitch(br *BinaryReader, pc int) (Instruction, error) {
	if err := br.Align(4); err != nil {
		return nil, err
	}
	def, err := br.ReadI4()
	if err != nil {
		return nil, err
	}
	low, err := br.ReadI4()
	if err != nil {
		return nil, err
	}
	high, err := br.ReadI4()
	if err != nil {
		return nil, err
	}
	if high < low {
		return nil, fmt.Errorf("tableswitch high %d below low %d", high, low)
	}
	n := int64(high) - int64(low) + 1
	if n*4 > int64(br.Remaining()) {
		return nil, br.truncated(int(n * 4))
	}

	insn := SwitchInsn{Op: TABLESWITCH, Default: pc + int(def)}
	for i := int64(0); i < n; i++ {
		off, err := br.ReadI4()
		if err != nil {
			return nil, err
		}
		insn.Keys = append(insn.Keys, int32(int64(low)+i))
		insn.Targets = append(insn.Targets, pc+int(off))
	}
	return insn, nil
}

func decodeLookupSwitch(br *BinaryReader, pc int) (Instruction, error) {
	if err := br.Align(4); err != nil {
		return nil, err
	}
	def, err := br.ReadI4()
	if err != nil {
		return nil, err
	}
	pairs, err := br.ReadI4()
	if err != nil {
		return nil, err
	}
	if pairs < 0 || int64(pairs)*8 > int64(br.Remaining()) {
		return nil, br.truncated(int(pairs) * 8)
	}

	insn := SwitchInsn{Op: LOOKUPSWITCH, Default: pc + int(def)}
	for i := 0; i < int(pairs); i++ {
		key, err := br.ReadI4()
		if err != nil {
			return nil, err
		}
		off, err := br.ReadI4()
		if err != nil {
			return nil, err
		}
		insn.Keys = append(insn.Keys, key)
		insn.Targets = append(insn.Targets, pc+int(off))
	}
	return insn, nil
}

package classfile_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mabhi256/hotscope/internal/classfile"
	"github.com/mabhi256/hotscope/internal/testutil"
)

func methodByName(t *testing.T, c *classfile.Class, name string) *classfile.Method {
	t.Helper()
	for _, m := range c.Methods {
		if m.Name == name {
			return m
		}
	}
	t.Fatalf("method %s not found", name)
	return nil
}

// realInstructions drops LineNumber pseudo-instructions
func realInstructions(m *classfile.Method) []classfile.Instruction {
	var out []classfile.Instruction
	for _, insn := range m.Instructions {
		if insn.Opcode() >= 0 {
			out = append(out, insn)
		}
	}
	return out
}

func TestParse_ClassHeader(t *testing.T) {
	cb := testutil.NewClass("com/example/MainKt").SourceFile("Main.kt")
	cb.Method(classfile.AccPublic|classfile.AccStatic, "main", "()V").Return()
	cb.AbstractMethod(classfile.AccPublic, "render", "()V")

	c, err := classfile.Parse(cb.Bytes())
	require.NoError(t, err)

	assert.Equal(t, "com/example/MainKt", c.Name)
	assert.Equal(t, "java/lang/Object", c.SuperName)
	assert.Equal(t, "Main.kt", c.SourceFile)
	assert.Equal(t, uint16(61), c.MajorVersion)
	require.Len(t, c.Methods, 2)

	main := methodByName(t, c, "main")
	assert.True(t, main.HasCode)
	assert.Equal(t, "com/example/MainKt", main.Owner)
	assert.Equal(t, []classfile.Instruction{classfile.SimpleInsn{Op: classfile.RETURN}}, main.Instructions)

	render := methodByName(t, c, "render")
	assert.False(t, render.HasCode)
	assert.Empty(t, render.Instructions)
}

func TestParse_Instructions(t *testing.T) {
	cb := testutil.NewClass("com/example/Insns")
	cb.Method(classfile.AccStatic, "run", "()V").
		Op(classfile.ICONST_M1).
		Bipush(-7).
		Sipush(1000).
		Ldc(int32(123456)).
		Ldc("hello").
		Ldc(int64(1)<<40).
		Ldc(2.5).
		Ldc(float32(1.5)).
		LdcClass("com/example/Foo").
		Var(classfile.ALOAD, 4).
		Op(0x2b). // aload_1
		Op(0x3d). // istore_2
		WideVar(classfile.ILOAD, 300).
		Iinc(3, -1).
		WideIinc(400, 1000).
		Type(classfile.NEW, "java/lang/StringBuilder").
		Type(classfile.CHECKCAST, "java/lang/String").
		MultiANewArray("[[I", 2).
		Field(classfile.GETSTATIC, "java/lang/System", "out", "Ljava/io/PrintStream;").
		Invoke(classfile.INVOKEVIRTUAL, "java/io/PrintStream", "println", "(Ljava/lang/String;)V").
		InvokeInterface("java/util/List", "size", "()I", 0).
		Jump(classfile.GOTO, 3).
		Return()

	c, err := classfile.Parse(cb.Bytes())
	require.NoError(t, err)

	got := realInstructions(methodByName(t, c, "run"))
	want := []classfile.Instruction{
		classfile.SimpleInsn{Op: classfile.ICONST_M1},
		classfile.IntInsn{Op: classfile.BIPUSH, Operand: -7},
		classfile.IntInsn{Op: classfile.SIPUSH, Operand: 1000},
		classfile.LdcInsn{Op: classfile.LDC, Value: classfile.IntConst(123456)},
		classfile.LdcInsn{Op: classfile.LDC, Value: classfile.StringConst("hello")},
		classfile.LdcInsn{Op: classfile.LDC2_W, Value: classfile.LongConst(1 << 40)},
		classfile.LdcInsn{Op: classfile.LDC2_W, Value: classfile.DoubleConst(2.5)},
		classfile.LdcInsn{Op: classfile.LDC, Value: classfile.FloatConst(1.5)},
		classfile.LdcInsn{Op: classfile.LDC_W, Value: classfile.TypeConst("com/example/Foo")},
		classfile.VarInsn{Op: classfile.ALOAD, Slot: 4},
		classfile.VarInsn{Op: 0x2b, Slot: 1},
		classfile.VarInsn{Op: 0x3d, Slot: 2},
		classfile.VarInsn{Op: classfile.ILOAD, Slot: 300},
		classfile.IincInsn{Slot: 3, Increment: -1},
		classfile.IincInsn{Slot: 400, Increment: 1000},
		classfile.TypeInsn{Op: classfile.NEW, Descriptor: "java/lang/StringBuilder"},
		classfile.TypeInsn{Op: classfile.CHECKCAST, Descriptor: "java/lang/String"},
		classfile.TypeInsn{Op: classfile.MULTIANEWARRAY, Descriptor: "[[I", Dimensions: 2},
		classfile.FieldInsn{Op: classfile.GETSTATIC, Owner: "java/lang/System", Name: "out", Descriptor: "Ljava/io/PrintStream;"},
		classfile.MethodInsn{Op: classfile.INVOKEVIRTUAL, Owner: "java/io/PrintStream", Name: "println", Descriptor: "(Ljava/lang/String;)V"},
		classfile.MethodInsn{Op: classfile.INVOKEINTERFACE, Owner: "java/util/List", Name: "size", Descriptor: "()I", Interface: true},
		classfile.JumpInsn{Op: classfile.GOTO, Target: 62},
		classfile.SimpleInsn{Op: classfile.RETURN},
	}
	assert.Equal(t, want, got)
}

func TestParse_SwitchPadding(t *testing.T) {
	for pad := 0; pad < 4; pad++ {
		cb := testutil.NewClass("com/example/Switch")
		code := cb.Method(classfile.AccStatic, "pick", "(I)I")
		for i := 0; i < pad; i++ {
			code.Op(classfile.NOP)
		}
		tablePC := code.PC()
		code.Op(0x1a).TableSwitch(10, 40, 20, 30) // iload_0; tableswitch
		lookupPC := code.PC()
		code.LookupSwitch(8, -5, 12, 99, 16).
			Op(classfile.ICONST_0).
			Op(classfile.IRETURN)

		c, err := classfile.Parse(cb.Bytes())
		require.NoError(t, err, "pad %d", pad)

		insns := realInstructions(methodByName(t, c, "pick"))
		require.Len(t, insns, pad+5)

		table := insns[pad+1].(classfile.SwitchInsn)
		assert.Equal(t, classfile.TABLESWITCH, table.Op)
		assert.Equal(t, []int32{10, 11}, table.Keys)
		tableOp := tablePC + 1
		assert.Equal(t, []int{tableOp + 20, tableOp + 30}, table.Targets)
		assert.Equal(t, tableOp+40, table.Default)

		lookup := insns[pad+2].(classfile.SwitchInsn)
		assert.Equal(t, classfile.LOOKUPSWITCH, lookup.Op)
		assert.Equal(t, []int32{-5, 99}, lookup.Keys)
		assert.Equal(t, []int{lookupPC + 12, lookupPC + 16}, lookup.Targets)
		assert.Equal(t, classfile.SimpleInsn{Op: classfile.IRETURN}, insns[pad+4])
	}
}

func TestParse_InvokeDynamicAndAnnotations(t *testing.T) {
	cb := testutil.NewClass("com/example/LambdaKt")
	cb.Composable("Screen").
		FunctionKeyMeta(-4711).
		IntAnnotation("Lcom/example/Visible;", "weight", 3, true).
		Lambda("com/example/LambdaKt", "Screen$lambda$0", "()Lkotlin/Unit;").
		Op(classfile.POP).
		Return()

	c, err := classfile.Parse(cb.Bytes())
	require.NoError(t, err)

	m := methodByName(t, c, "Screen")
	key, ok := m.IntAnnotationValue(testutil.FunctionKey, "key")
	require.True(t, ok)
	assert.Equal(t, int32(-4711), key)

	weight, ok := m.IntAnnotationValue("Lcom/example/Visible;", "weight")
	require.True(t, ok)
	assert.Equal(t, int32(3), weight)

	_, ok = m.IntAnnotationValue(testutil.FunctionKey, "missing")
	assert.False(t, ok)

	indy, ok := m.Instructions[0].(classfile.InvokeDynamicInsn)
	require.True(t, ok)
	assert.Equal(t, "invoke", indy.Name)
	assert.Equal(t, testutil.LambdaFactory, indy.Bootstrap.Owner)
	assert.Equal(t, "metafactory", indy.Bootstrap.Name)
	assert.Equal(t, classfile.RefInvokeStatic, indy.Bootstrap.Tag)
	require.Len(t, indy.BootstrapArgs, 3)
	assert.Equal(t, classfile.MethodTypeConst("()Ljava/lang/Object;"), indy.BootstrapArgs[0])
	assert.Equal(t, classfile.Handle{
		Tag:        classfile.RefInvokeStatic,
		Owner:      "com/example/LambdaKt",
		Name:       "Screen$lambda$0",
		Descriptor: "()Lkotlin/Unit;",
	}, indy.BootstrapArgs[1])
}

func TestParse_LineNumbers(t *testing.T) {
	cb := testutil.NewClass("com/example/Lines")
	cb.Method(classfile.AccStatic, "run", "()V").
		Line(10).Op(classfile.ICONST_1).Op(classfile.POP).
		Line(11).Return()

	c, err := classfile.Parse(cb.Bytes())
	require.NoError(t, err)

	assert.Equal(t, []classfile.Instruction{
		classfile.LineNumber{Line: 10},
		classfile.SimpleInsn{Op: classfile.ICONST_1},
		classfile.SimpleInsn{Op: classfile.POP},
		classfile.LineNumber{Line: 11},
		classfile.SimpleInsn{Op: classfile.RETURN},
	}, methodByName(t, c, "run").Instructions)
}

func TestParse_Errors(t *testing.T) {
	valid := func() []byte {
		cb := testutil.NewClass("com/example/Ok")
		cb.Method(classfile.AccStatic, "run", "()V").Return()
		return cb.Bytes()
	}

	t.Run("bad magic", func(t *testing.T) {
		data := valid()
		data[0] = 0xCB
		_, err := classfile.Parse(data)
		assert.ErrorIs(t, err, classfile.ErrInvalidMagic)
	})

	t.Run("truncated", func(t *testing.T) {
		data := valid()
		for _, n := range []int{2, 9, len(data) / 2, len(data) - 1} {
			_, err := classfile.Parse(data[:n])
			assert.ErrorIs(t, err, classfile.ErrTruncated, "length %d", n)

			var fe *classfile.FormatError
			require.True(t, errors.As(err, &fe))
			assert.LessOrEqual(t, fe.Offset, n)
		}
	})

	t.Run("unknown opcode", func(t *testing.T) {
		cb := testutil.NewClass("com/example/Bad")
		cb.Method(classfile.AccStatic, "run", "()V").Op(classfile.NOP).Raw(0xfe)
		_, err := classfile.Parse(cb.Bytes())
		assert.ErrorIs(t, err, classfile.ErrUnknownOpcode)
	})

	t.Run("bad constant reference", func(t *testing.T) {
		cb := testutil.NewClass("com/example/Bad")
		cb.Method(classfile.AccStatic, "run", "()V").Raw(classfile.LDC, 0xff)
		_, err := classfile.Parse(cb.Bytes())
		assert.ErrorIs(t, err, classfile.ErrBadConstant)
	})
}

func TestOpcodeName(t *testing.T) {
	assert.Equal(t, "invokestatic", classfile.OpcodeName(classfile.INVOKESTATIC))
	assert.Equal(t, "jsr_w", classfile.OpcodeName(classfile.JSR_W))
	assert.Equal(t, "pseudo", classfile.OpcodeName(classfile.PseudoOpcode))
	assert.Equal(t, "opcode_0xfe", classfile.OpcodeName(0xfe))
}

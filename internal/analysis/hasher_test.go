package analysis_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mabhi256/hotscope/internal/analysis"
	"github.com/mabhi256/hotscope/internal/classfile"
)

func hashOf(insns ...classfile.Instruction) uint64 {
	h := analysis.NewHasher()
	for _, insn := range insns {
		h.Instruction(insn)
	}
	return h.Sum64()
}

var sample = []classfile.Instruction{
	classfile.VarInsn{Op: 0x2a, Slot: 0},
	classfile.IntInsn{Op: classfile.SIPUSH, Operand: 1234},
	classfile.LdcInsn{Op: classfile.LDC, Value: classfile.StringConst("hello")},
	classfile.MethodInsn{Op: classfile.INVOKESTATIC, Owner: "com/example/A", Name: "f", Descriptor: "()V"},
	classfile.FieldInsn{Op: classfile.GETSTATIC, Owner: "com/example/A", Name: "x", Descriptor: "I"},
	classfile.SimpleInsn{Op: classfile.RETURN},
}

func TestHasher_Deterministic(t *testing.T) {
	assert.Equal(t, hashOf(sample...), hashOf(sample...))
}

func TestHasher_Sensitivity(t *testing.T) {
	base := hashOf(sample...)

	tests := []struct {
		name        string
		index       int
		replacement classfile.Instruction
	}{
		{"slot", 0, classfile.VarInsn{Op: 0x2a, Slot: 1}},
		{"operand", 1, classfile.IntInsn{Op: classfile.SIPUSH, Operand: 1235}},
		{"string", 2, classfile.LdcInsn{Op: classfile.LDC, Value: classfile.StringConst("hellp")}},
		{"constant kind", 2, classfile.LdcInsn{Op: classfile.LDC, Value: classfile.TypeConst("hello")}},
		{"call owner", 3, classfile.MethodInsn{Op: classfile.INVOKESTATIC, Owner: "com/example/B", Name: "f", Descriptor: "()V"}},
		{"call interface", 3, classfile.MethodInsn{Op: classfile.INVOKESTATIC, Owner: "com/example/A", Name: "f", Descriptor: "()V", Interface: true}},
		{"field name", 4, classfile.FieldInsn{Op: classfile.GETSTATIC, Owner: "com/example/A", Name: "y", Descriptor: "I"}},
		{"opcode", 5, classfile.SimpleInsn{Op: classfile.ARETURN}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changed := append([]classfile.Instruction(nil), sample...)
			changed[tt.index] = tt.replacement
			assert.NotEqual(t, base, hashOf(changed...))
		})
	}
}

func TestHasher_OrderMatters(t *testing.T) {
	a := classfile.IntInsn{Op: classfile.BIPUSH, Operand: 1}
	b := classfile.IntInsn{Op: classfile.BIPUSH, Operand: 2}
	assert.NotEqual(t, hashOf(a, b), hashOf(b, a))
}

func TestHasher_FieldBoundaries(t *testing.T) {
	// adjacent strings must not be able to trade characters
	a := classfile.MethodInsn{Op: classfile.INVOKESTATIC, Owner: "ab", Name: "c", Descriptor: "()V"}
	b := classfile.MethodInsn{Op: classfile.INVOKESTATIC, Owner: "a", Name: "bc", Descriptor: "()V"}
	assert.NotEqual(t, hashOf(a), hashOf(b))
}

func TestHasher_SkipsPseudoAndNop(t *testing.T) {
	empty := hashOf()
	assert.Equal(t, empty, hashOf(classfile.LineNumber{Line: 3}))
	assert.Equal(t, empty, hashOf(classfile.SimpleInsn{Op: classfile.NOP}))
}

func TestHasher_JumpTargetsIgnored(t *testing.T) {
	assert.Equal(t,
		hashOf(classfile.JumpInsn{Op: classfile.GOTO, Target: 10}),
		hashOf(classfile.JumpInsn{Op: classfile.GOTO, Target: 42}))
	assert.NotEqual(t,
		hashOf(classfile.JumpInsn{Op: classfile.GOTO, Target: 10}),
		hashOf(classfile.JumpInsn{Op: classfile.IFEQ, Target: 10}))
}

func TestHasher_BootstrapArguments(t *testing.T) {
	indy := func(impl string) classfile.InvokeDynamicInsn {
		return classfile.InvokeDynamicInsn{
			Name:       "invoke",
			Descriptor: "()Lkotlin/jvm/functions/Function0;",
			Bootstrap:  classfile.Handle{Tag: classfile.RefInvokeStatic, Owner: "java/lang/invoke/LambdaMetafactory", Name: "metafactory"},
			BootstrapArgs: []classfile.Constant{
				classfile.MethodTypeConst("()Ljava/lang/Object;"),
				classfile.Handle{Tag: classfile.RefInvokeStatic, Owner: "com/example/A", Name: impl, Descriptor: "()V"},
			},
		}
	}
	assert.Equal(t, hashOf(indy("lambda$0")), hashOf(indy("lambda$0")))
	assert.NotEqual(t, hashOf(indy("lambda$0")), hashOf(indy("lambda$1")))
}

func TestHasher_Constants(t *testing.T) {
	constants := []classfile.Constant{
		classfile.IntConst(1),
		classfile.LongConst(1),
		classfile.FloatConst(1),
		classfile.DoubleConst(1),
		classfile.BoolConst(true),
		classfile.StringConst("1"),
		classfile.TypeConst("1"),
		classfile.MethodTypeConst("1"),
	}
	seen := make(map[uint64]classfile.Constant)
	for _, c := range constants {
		h := analysis.NewHasher()
		h.Constant(c)
		sum := h.Sum64()
		if prev, ok := seen[sum]; ok {
			t.Fatalf("%T and %T hash identically", prev, c)
		}
		seen[sum] = c
	}
}

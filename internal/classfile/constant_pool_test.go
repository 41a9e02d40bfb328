package classfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dynamicPool builds a pool whose dynamic constants 8 and 9 use bootstrap
// methods 0 and 1, and whose constant 10 uses bootstrap method 2
func dynamicPool(bootstraps ...BootstrapMethod) *ConstantPool {
	return &ConstantPool{
		entries: []cpEntry{
			{},
			{tag: TagUtf8, str: "java/lang/invoke/ConstantBootstraps"},
			{tag: TagClass, a: 1},
			{tag: TagUtf8, str: "invoke"},
			{tag: TagUtf8, str: "()Ljava/lang/Object;"},
			{tag: TagNameAndType, a: 3, b: 4},
			{tag: TagMethodref, a: 2, b: 5},
			{tag: TagMethodHandle, a: RefInvokeStatic, b: 6},
			{tag: TagDynamic, a: 0, b: 5},
			{tag: TagDynamic, a: 1, b: 5},
			{tag: TagDynamic, a: 2, b: 5},
		},
		bootstraps: bootstraps,
	}
}

func TestLoadable_CyclicDynamicConstant(t *testing.T) {
	t.Run("self reference", func(t *testing.T) {
		pool := dynamicPool(BootstrapMethod{MethodRef: 7, Args: []uint16{8}})
		_, err := pool.Loadable(8)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrBadConstant)
		assert.Contains(t, err.Error(), "cyclic dynamic constant 8")
	})

	t.Run("indirect", func(t *testing.T) {
		pool := dynamicPool(
			BootstrapMethod{MethodRef: 7, Args: []uint16{9}},
			BootstrapMethod{MethodRef: 7, Args: []uint16{8}},
		)
		_, err := pool.Loadable(8)
		assert.ErrorIs(t, err, ErrBadConstant)

		_, _, _, _, err = (&ConstantPool{
			entries:    append(pool.entries, cpEntry{tag: TagInvokeDynamic, a: 0, b: 5}),
			bootstraps: pool.bootstraps,
		}).InvokeDynamic(11)
		assert.ErrorIs(t, err, ErrBadConstant)
	})
}

func TestLoadable_SharedDynamicConstant(t *testing.T) {
	// constant 10 appears twice under constant 8 without forming a cycle
	pool := dynamicPool(
		BootstrapMethod{MethodRef: 7, Args: []uint16{10, 10}},
		BootstrapMethod{MethodRef: 7},
		BootstrapMethod{MethodRef: 7},
	)
	c, err := pool.Loadable(8)
	require.NoError(t, err)

	outer, ok := c.(DynamicConst)
	require.True(t, ok)
	require.Len(t, outer.BootstrapArgs, 2)
	assert.Equal(t, outer.BootstrapArgs[0], outer.BootstrapArgs[1])
	assert.Equal(t, "invoke", outer.Bootstrap.Name)
}

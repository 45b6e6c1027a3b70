package api

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValuePacking(t *testing.T) {
	require.Equal(t, int32(-7), I32(-7).I32())
	require.Equal(t, uint32(7), U32(7).U32())
	require.Equal(t, int64(-7), I64(-7).I64())
	require.Equal(t, uint64(7), U64(7).U64())
	require.Equal(t, float32(1.5), F32(1.5).F32())
	require.Equal(t, 1.5, F64(1.5).F64())
	require.True(t, Bool(true).Bool())
	require.False(t, Bool(false).Bool())
	require.Equal(t, uint32(100), Ptr(100).U32())
}

func TestValueKindTags(t *testing.T) {
	// These byte values are normative on the wire (spec.md §6); the four
	// numeric tags match the WASM value-type bytes.
	require.Equal(t, ValueKind(0x7F), ValueKindI32)
	require.Equal(t, ValueKind(0x7E), ValueKindI64)
	require.Equal(t, ValueKind(0x7D), ValueKindF32)
	require.Equal(t, ValueKind(0x7C), ValueKindF64)
	require.Equal(t, ValueKind(0x7A), ValueKindBool)
	require.Equal(t, ValueKind(0x70), ValueKindPtr)
	require.Equal(t, ValueKind(0x40), ValueKindVoid)
}

func TestIsScalar(t *testing.T) {
	require.True(t, IsScalar(ValueKindI32))
	require.True(t, IsScalar(ValueKindBool))
	require.False(t, IsScalar(ValueKindVoid))
	require.False(t, IsScalar(0xFF))
}

func TestTruthy(t *testing.T) {
	require.True(t, I32(1).Truthy())
	require.False(t, I32(0).Truthy())
	require.True(t, Bool(true).Truthy())
	require.False(t, Bool(false).Truthy())
}

func TestRawRoundTrip(t *testing.T) {
	v := F64(math.Pi)
	got := RawValue(ValueKindF64, v.Raw())
	require.Equal(t, v, got)
}

func TestVoidValue(t *testing.T) {
	require.Equal(t, ValueKindVoid, Void.Kind)
}

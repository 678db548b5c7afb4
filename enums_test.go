package labdb

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueType(t *testing.T) {
	assert.Equal(t, "unicode", ValueUnicode.String())
	assert.Equal(t, "ValueType(9)", ValueType(9).String())
	assert.False(t, ValueType(9).Valid())

	for _, in := range []string{"integer", " INTEGER ", "3"} {
		v, err := ParseValueType(in)
		require.NoError(t, err, in)
		assert.Equal(t, ValueInteger, v)
	}

	_, err := ParseValueType("decimal")
	assert.True(t, IsValidation(err))
	_, err = ParseValueType("6")
	assert.True(t, IsValidation(err))
}

func TestObjectType(t *testing.T) {
	assert.Equal(t, ObjectType(0), ObjectModule)
	assert.Equal(t, ObjectType(4), ObjectUnknown)
	assert.Equal(t, "TestSuite", ObjectSuite.String())
	assert.Equal(t, "unknown", ObjectType(12).String())
	assert.Equal(t, ObjectRunner, ParseObjectType("TestRunner"))
	assert.Equal(t, ObjectUnknown, ParseObjectType("Widget"))
}

func TestTestResultCodeOrdering(t *testing.T) {
	assert.True(t, slices.IsSorted(AllResultCodes))
	assert.Less(t, ResultExpectedFail, ResultNA)
	assert.Less(t, ResultIncomplete, ResultFailed)
	assert.Less(t, ResultFailed, ResultPassed)
	assert.Equal(t, TestResultCode(1), ResultPassed)
	assert.Equal(t, TestResultCode(-4), ResultExpectedFail)
}

func TestTestResultCodeParse(t *testing.T) {
	tests := map[string]TestResultCode{
		"PASSED":        ResultPassed,
		"passed":        ResultPassed,
		"expected_fail": ResultExpectedFail,
		"-2":            ResultAbort,
		" NA ":          ResultNA,
	}
	for in, want := range tests {
		got, err := ParseTestResultCode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "OK", "2", "-5"} {
		_, err := ParseTestResultCode(bad)
		assert.True(t, IsValidation(err), bad)
	}
}

func TestTestResultCodeIsPass(t *testing.T) {
	var passing []TestResultCode
	for _, c := range AllResultCodes {
		if c.IsPass() {
			passing = append(passing, c)
		}
	}
	assert.Equal(t, []TestResultCode{ResultPassed}, passing)
}

func TestTestResultCodeText(t *testing.T) {
	b, err := ResultIncomplete.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "INCOMPLETE", string(b))

	var c TestResultCode
	require.NoError(t, c.UnmarshalText([]byte("ABORT")))
	assert.Equal(t, ResultAbort, c)
	assert.Error(t, c.UnmarshalText([]byte("MAYBE")))
	assert.Equal(t, "TestResultCode(7)", TestResultCode(7).String())
}
